package datetime

import (
	"testing"
	"time"
)

func TestNextAndPreviousCrossBoundaries(t *testing.T) {
	cases := []struct {
		date, next, prev string
	}{
		{"2024-06-10", "2024-06-11", "2024-06-09"},
		{"2024-01-31", "2024-02-01", "2024-01-30"},
		{"2024-03-01", "2024-03-02", "2024-02-29"},
		{"2023-03-01", "2023-03-02", "2023-02-28"},
		{"2024-12-31", "2025-01-01", "2024-12-30"},
		{"2025-01-01", "2025-01-02", "2024-12-31"},
	}
	for _, tc := range cases {
		n, err := Next(tc.date)
		if err != nil || n != tc.next {
			t.Errorf("Next(%s) = %q, %v; want %q", tc.date, n, err, tc.next)
		}
		p, err := Previous(tc.date)
		if err != nil || p != tc.prev {
			t.Errorf("Previous(%s) = %q, %v; want %q", tc.date, p, err, tc.prev)
		}
	}
}

func TestNextRejectsGarbage(t *testing.T) {
	if _, err := Next("10/06/2024"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
	if _, err := ParseDate("2024-02-30"); err == nil {
		t.Fatal("expected error for impossible day")
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2024, 6, 10, 23, 30, 0, 0, time.UTC)
	if got := Today(now, nil); got != "2024-06-10" {
		t.Fatalf("Today(UTC) = %q", got)
	}
	tokyo := time.FixedZone("JST", 9*60*60)
	if got := Today(now, tokyo); got != "2024-06-11" {
		t.Fatalf("Today(JST) = %q", got)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("21:30")
	if err != nil || h != 21 || m != 30 {
		t.Fatalf("ParseClock(21:30) = %d, %d, %v", h, m, err)
	}
	if _, _, err := ParseClock("9:30"); err == nil {
		t.Fatal("expected error for single digit hour")
	}
	if _, _, err := ParseClock("ab:cd"); err == nil {
		t.Fatal("expected error for letters")
	}
}

func TestFormatters(t *testing.T) {
	if got := FormatAsDate("2024-06-10T00:00:00.000Z"); got != "2024-06-10" {
		t.Errorf("FormatAsDate = %q", got)
	}
	if got := FormatAsTime("18:00:00"); got != "18:00" {
		t.Errorf("FormatAsTime = %q", got)
	}
	if got := FormatDate("2024-06-10"); got != "June 10, 2024" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatDate("soon"); got != "soon" {
		t.Errorf("FormatDate(garbage) = %q", got)
	}

	times := map[string]string{
		"09:30": "09:30 AM",
		"12:15": "12:15 PM",
		"13:05": "1:05 PM",
		"21:30": "9:30 PM",
	}
	for in, want := range times {
		if got := FormatTime(in); got != want {
			t.Errorf("FormatTime(%s) = %q, want %q", in, got, want)
		}
	}

	phones := map[string]string{
		"5551234567":     "(555)123-4567",
		"1-555-123-4567": "+1 (555)123-4567",
		"123-4567":       "123-4567",
		"555-0100":       "555-0100",
		"not a phone":    "not a phone",
	}
	for in, want := range phones {
		if got := FormatPhone(in); got != want {
			t.Errorf("FormatPhone(%s) = %q, want %q", in, got, want)
		}
	}
}
