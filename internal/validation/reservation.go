package validation

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/datetime"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// Operating hours, inclusive on both ends.
const (
	openHour, openMinute   = 10, 30
	closeHour, closeMinute = 21, 30
)

// ClosedDay is the weekday the restaurant does not take bookings.
const ClosedDay = time.Tuesday

// RequiredFields lists the reservation fields in the order their presence
// is checked.
var RequiredFields = []string{
	"first_name",
	"last_name",
	"mobile_number",
	"people",
	"reservation_date",
	"reservation_time",
}

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
)

// State is the request-scoped data a chain works on.  Draft is filled in
// by the field checks and read by the policy checks after them.
type State struct {
	Body     Body
	Existing *model.Reservation
	Draft    model.Reservation
	Now      time.Time
	Location *time.Location
}

// Validator is one step of a chain.  It returns nil to pass the request on
// or an *Error to stop it.
type Validator func(s *State) error

// Run executes vs in order and returns the first failure.
func Run(s *State, vs ...Validator) error {
	for _, v := range vs {
		if err := v(s); err != nil {
			return err
		}
	}
	return nil
}

// CreateChain is the sequence applied to POST /reservations.
func CreateChain() []Validator {
	return []Validator{RequireFields, CheckFormats, CheckTypes, RejectCreateStatus, CheckDate, CheckTime}
}

// UpdateChain is the sequence applied to PUT /reservations/:id once the
// reservation is known to exist.
func UpdateChain() []Validator {
	return []Validator{RejectFinished, RequireFields, CheckFormats, CheckTypes, CheckDate, CheckTime}
}

// StatusChain is the sequence applied to PUT /reservations/:id/status.
func StatusChain() []Validator {
	return []Validator{CheckStatusTransition}
}

// RequireFields fails on the first required field that is absent or falsy.
func RequireFields(s *State) error {
	for _, f := range RequiredFields {
		if !s.Body.Has(f) {
			return Invalid("%s must exist", f)
		}
	}
	return nil
}

// CheckFormats validates reservation_date and reservation_time and copies
// their normalised values into the draft.
func CheckFormats(s *State) error {
	date, ok := s.Body.String("reservation_date")
	if !ok || !datePattern.MatchString(date) {
		return Invalid("reservation_date must be in valid format")
	}
	if _, err := datetime.ParseDate(date); err != nil {
		return Invalid("reservation_date must be in valid format")
	}
	clock, ok := s.Body.String("reservation_time")
	if !ok || !timePattern.MatchString(clock) || !validClock(clock) {
		return Invalid("reservation_time must be in valid format")
	}
	s.Draft.ReservationDate = date
	s.Draft.ReservationTime = clock[:5]
	return nil
}

// validClock reports whether a pattern-matched "HH:MM[:SS]" names a real
// time of day.
func validClock(clock string) bool {
	hour, minute, err := datetime.ParseClock(clock)
	if err != nil || hour > 23 || minute > 59 {
		return false
	}
	if len(clock) == 8 {
		sec, err := strconv.Atoi(clock[6:])
		return err == nil && sec <= 59
	}
	return true
}

// CheckTypes requires people to be a JSON number with a whole value (2 and
// 2.0 both pass) and the name and phone fields to be strings, then
// completes the draft.
func CheckTypes(s *State) error {
	n, ok := s.Body.Number("people")
	if !ok {
		return Invalid("people must be a number")
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) {
		return Invalid("people must be a whole number")
	}
	if f < 1 {
		return Invalid("people must be at least 1")
	}
	if f > math.MaxInt32 {
		return Invalid("people must be a reasonable party size")
	}
	s.Draft.People = int(f)

	for _, f := range []struct {
		key string
		dst *string
	}{
		{"first_name", &s.Draft.FirstName},
		{"last_name", &s.Draft.LastName},
		{"mobile_number", &s.Draft.MobileNumber},
	} {
		v, ok := s.Body.String(f.key)
		if !ok {
			return Invalid("%s must be a string", f.key)
		}
		*f.dst = v
	}
	return nil
}

// RejectCreateStatus keeps clients from creating a reservation that is
// already seated or finished.
func RejectCreateStatus(s *State) error {
	status, _ := s.Body.String("status")
	if status == model.StatusSeated || status == model.StatusFinished {
		return Invalid("status cannot be set to %s", status)
	}
	s.Draft.Status = model.StatusBooked
	return nil
}

// CheckDate rejects the closed weekday and calendar days before today.
func CheckDate(s *State) error {
	d, err := datetime.ParseDate(s.Draft.ReservationDate)
	if err != nil {
		return Invalid("reservation_date must be in valid format")
	}
	if d.Weekday() == ClosedDay {
		return fail(ErrClosedDay, "Restaurant is closed on Tuesdays")
	}
	if s.Draft.ReservationDate < s.today() {
		return fail(ErrPastDate, "Reservations must be made for a future date and time")
	}
	return nil
}

// CheckTime rejects a time that has already passed today and any time
// outside operating hours.
func CheckTime(s *State) error {
	clock := s.Draft.ReservationTime
	hour, minute, err := datetime.ParseClock(clock)
	if err != nil {
		return Invalid("reservation_time must be in valid format")
	}
	if s.Draft.ReservationDate == s.today() && clock <= s.clock() {
		return fail(ErrPastTime, "Reservations must be made for a future date and time")
	}
	if hour < openHour || (hour == openHour && minute < openMinute) {
		return fail(ErrOutsideHours, "Reservation must be made for restaurant's operating hours")
	}
	if hour > closeHour || (hour == closeHour && minute > closeMinute) {
		return fail(ErrOutsideHours, "Reservation must be made for restaurant's operating hours")
	}
	return nil
}

// RejectFinished stops any change to a reservation that is finished.
func RejectFinished(s *State) error {
	if s.Existing != nil && s.Existing.Status == model.StatusFinished {
		return fail(ErrTerminalState, "Reservations with status finished cannot be updated")
	}
	return nil
}

// CheckStatusTransition validates the requested status against the
// reservation's current one.  cancelled is always reachable from a state
// that is not finished.
func CheckStatusTransition(s *State) error {
	if err := RejectFinished(s); err != nil {
		return err
	}
	status, _ := s.Body.String("status")
	if status == model.StatusCancelled {
		s.Draft.Status = status
		return nil
	}
	switch status {
	case model.StatusBooked, model.StatusSeated, model.StatusFinished:
		s.Draft.Status = status
		return nil
	}
	return fail(ErrUnknownStatus, "Cannot update a reservation with unknown status")
}

func (s *State) local() time.Time {
	now := s.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc)
}

func (s *State) today() string {
	return datetime.AsDateString(s.local())
}

func (s *State) clock() string {
	return s.local().Format(datetime.ClockLayout)
}
