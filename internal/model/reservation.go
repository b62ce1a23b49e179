package model

import "time"

// Reservation status values.  A reservation starts as booked, moves to
// seated when a table is assigned and to finished when the table is
// cleared.  cancelled may be entered from any state except finished.
const (
    StatusBooked    = "booked"
    StatusSeated    = "seated"
    StatusFinished  = "finished"
    StatusCancelled = "cancelled"
)

// Reservation records one party's booking.
//
// Fields:
//  ID              – primary key assigned by the database.
//  FirstName       – guest first name.
//  LastName        – guest last name.
//  MobileNumber    – contact number as typed by staff.
//  People          – party size.
//  ReservationDate – calendar day, "YYYY-MM-DD".
//  ReservationTime – wall clock, "HH:MM".
//  Status          – one of the Status* constants.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
    ID              uint64    `json:"reservation_id"`   // reservations.reservation_id
    FirstName       string    `json:"first_name"`       // reservations.first_name
    LastName        string    `json:"last_name"`        // reservations.last_name
    MobileNumber    string    `json:"mobile_number"`    // reservations.mobile_number
    People          int       `json:"people"`           // reservations.people
    ReservationDate string    `json:"reservation_date"` // reservations.reservation_date
    ReservationTime string    `json:"reservation_time"` // reservations.reservation_time
    Status          string    `json:"status"`           // reservations.status
    CreatedAt       time.Time `json:"created_at"`       // reservations.created_at
    UpdatedAt       time.Time `json:"updated_at"`       // reservations.updated_at
}

// IsKnownStatus reports whether s is one of the four reservation states.
func IsKnownStatus(s string) bool {
    switch s {
    case StatusBooked, StatusSeated, StatusFinished, StatusCancelled:
        return true
    }
    return false
}
