// Package queue defines the reservation event payload exchanged over the
// message broker and the consumer that records it.
package queue

import "time"

// ReservationsQueue is the durable queue every reservation event goes to.
const ReservationsQueue = "reservations.events"

// Event types.
const (
    EventCreated       = "reservation.created"
    EventUpdated       = "reservation.updated"
    EventStatusChanged = "reservation.status_changed"
    EventSeated        = "reservation.seated"
    EventFinished      = "reservation.finished"
)

// ReservationEvent is published after a reservation changes.  It carries
// enough of the booking for downstream consumers to log or notify without
// reading the database.
type ReservationEvent struct {
    ID              string    `json:"event_id"`
    Type            string    `json:"type"`
    ReservationID   uint64    `json:"reservation_id"`
    Status          string    `json:"status"`
    FirstName       string    `json:"first_name,omitempty"`
    LastName        string    `json:"last_name,omitempty"`
    MobileNumber    string    `json:"mobile_number,omitempty"`
    People          int       `json:"people,omitempty"`
    ReservationDate string    `json:"reservation_date,omitempty"`
    ReservationTime string    `json:"reservation_time,omitempty"`
    TableID         uint64    `json:"table_id,omitempty"`
    OccurredAt      time.Time `json:"occurred_at"`
}
