// Package validation implements the checks a reservation request has to
// pass before it reaches the database.  Each check is a Validator; a chain
// of them runs in order and stops at the first failure, so callers always
// get the message of the first rule the request broke.
package validation

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds.  Every *Error wraps exactly one of these so callers can use
// errors.Is without matching on message text.
var (
	ErrValidation    = errors.New("validation failed")
	ErrClosedDay     = errors.New("restaurant closed")
	ErrPastDate      = errors.New("date in the past")
	ErrPastTime      = errors.New("time in the past")
	ErrOutsideHours  = errors.New("outside operating hours")
	ErrNotFound      = errors.New("reservation not found")
	ErrTerminalState = errors.New("reservation finished")
	ErrUnknownStatus = errors.New("unknown status")
)

// Error is the tagged failure returned by a Validator.  Status is the HTTP
// code the API answers with and Message is shown to the caller verbatim.
type Error struct {
	Kind    error
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, format string, args ...any) *Error {
	status := http.StatusBadRequest
	if kind == ErrNotFound {
		status = http.StatusNotFound
	}
	return &Error{Kind: kind, Status: status, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds the error for an unknown reservation id.
func NotFound(id string) *Error {
	return fail(ErrNotFound, "Reservation %s cannot be found", id)
}

// Invalid builds a plain ErrValidation failure.
func Invalid(format string, args ...any) *Error {
	return fail(ErrValidation, format, args...)
}

// As extracts the *Error carried by err, if any.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
