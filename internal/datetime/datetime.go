// Package datetime holds the calendar helpers shared by the API and the
// dashboard.  Dates travel as "YYYY-MM-DD" strings and times as "HH:MM";
// every helper here works on those string forms so callers never have to
// agree on a time.Location for a value that has no instant attached.
package datetime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout and ClockLayout are the wire formats of reservation_date and
// reservation_time.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	dateFormat = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	timeFormat = regexp.MustCompile(`\d{2}:\d{2}`)
	nonDigits  = regexp.MustCompile(`\D`)
	phoneParts = regexp.MustCompile(`^(1)?(\d{3})?(\d{3})(\d{4})$`)
)

// AsDateString renders t as "YYYY-MM-DD" in t's own location.
func AsDateString(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return AsDateString(now.In(loc))
}

// Next returns the day after date.  Month and year boundaries are handled by
// time.Date normalisation.
func Next(date string) (string, error) {
	return shift(date, 1)
}

// Previous returns the day before date.
func Previous(date string) (string, error) {
	return shift(date, -1)
}

func shift(date string, days int) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return AsDateString(d.AddDate(0, 0, days)), nil
}

// ParseDate parses a strict "YYYY-MM-DD" value as midnight UTC.  Values that
// look right but name no real day (2024-02-30) are rejected.
func ParseDate(date string) (time.Time, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d, nil
}

// ParseClock splits "HH:MM" into hour and minute.  It only checks that both
// halves are numbers; range checks are the caller's policy.
func ParseClock(clock string) (hour, minute int, err error) {
	if len(clock) < 5 || clock[2] != ':' {
		return 0, 0, fmt.Errorf("invalid time %q", clock)
	}
	if hour, err = strconv.Atoi(clock[0:2]); err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", clock, err)
	}
	if minute, err = strconv.Atoi(clock[3:5]); err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", clock, err)
	}
	return hour, minute, nil
}

// FormatAsDate extracts the first "YYYY-MM-DD" run from s, so database
// timestamps such as "2024-06-10T00:00:00Z" collapse to their date.
func FormatAsDate(s string) string {
	return dateFormat.FindString(s)
}

// FormatAsTime extracts the first "HH:MM" run from s ("18:00:00" -> "18:00").
func FormatAsTime(s string) string {
	return timeFormat.FindString(s)
}

// FormatDate renders "2024-06-10" as "June 10, 2024".  Inputs that are not
// a date are returned unchanged.
func FormatDate(date string) string {
	d, err := ParseDate(FormatAsDate(date))
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %d, %d", d.Month(), d.Day(), d.Year())
}

// FormatTime renders a 24-hour "HH:MM" as a 12-hour clock with meridiem.
// Morning hours keep their two digits ("09:30 AM"), afternoon hours are
// reduced ("13:05" -> "1:05 PM") and noon stays 12.
func FormatTime(clock string) string {
	if len(clock) < 5 {
		return clock
	}
	hour, minutes := clock[0:2], clock[3:5]
	h, err := strconv.Atoi(hour)
	if err != nil {
		return clock
	}
	meridiem := "AM"
	if h >= 12 {
		meridiem = "PM"
		if h > 12 {
			hour = strconv.Itoa(h - 12)
		}
	}
	return fmt.Sprintf("%s:%s %s", hour, minutes, meridiem)
}

// FormatPhone renders a North American number as "(555)123-4567" style
// text, with a "+1 " prefix when the country code is present.  Anything that
// does not reduce to 7, 10 or 11 digits is returned as given.
func FormatPhone(number string) string {
	cleaned := nonDigits.ReplaceAllString(number, "")
	m := phoneParts.FindStringSubmatch(cleaned)
	if m == nil {
		return number
	}
	var b strings.Builder
	if m[1] != "" {
		b.WriteString("+1 ")
	}
	if m[2] != "" {
		b.WriteString("(" + m[2] + ")")
	}
	b.WriteString(m[3] + "-" + m[4])
	return b.String()
}

// Digits strips everything but 0-9 from s.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}
