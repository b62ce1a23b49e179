// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import "errors"

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as seating a party at a table that is already
// occupied.  Handlers should translate this into an HTTP 400 response.
var ErrConflict = errors.New("conflict")

// ErrCapacity is returned when a party is larger than the table.
var ErrCapacity = errors.New("party exceeds table capacity")

// ErrNotOccupied is returned when clearing a table nobody is seated at.
var ErrNotOccupied = errors.New("table is not occupied")

// ErrNotBooked is returned when seating a reservation that is not in the
// booked state.
var ErrNotBooked = errors.New("reservation is not booked")
