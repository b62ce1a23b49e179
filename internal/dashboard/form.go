package dashboard

import (
    "context"
    "net/http"
    "strconv"

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// ReservationForm is the body the new and edit forms submit.  Status is
// left out: the API sets it on create and keeps it on update.
type ReservationForm struct {
    FirstName       string `json:"first_name"`
    LastName        string `json:"last_name"`
    MobileNumber    string `json:"mobile_number"`
    People          int    `json:"people"`
    ReservationDate string `json:"reservation_date"`
    ReservationTime string `json:"reservation_time"`
}

// FormFrom prefills an edit form with a stored reservation.
func FormFrom(r *model.Reservation) ReservationForm {
    return ReservationForm{
        FirstName:       r.FirstName,
        LastName:        r.LastName,
        MobileNumber:    r.MobileNumber,
        People:          r.People,
        ReservationDate: r.ReservationDate,
        ReservationTime: r.ReservationTime,
    }
}

// CreateReservation submits a new reservation and returns the stored one.
func (c *Client) CreateReservation(ctx context.Context, f ReservationForm) (*model.Reservation, error) {
    var out model.Reservation
    if err := c.do(ctx, http.MethodPost, "/reservations", nil, f, &out); err != nil {
        return nil, err
    }
    return &out, nil
}

// ReadReservation loads reservation id.
func (c *Client) ReadReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
    var out model.Reservation
    if err := c.do(ctx, http.MethodGet, reservationPath(id), nil, nil, &out); err != nil {
        return nil, err
    }
    return &out, nil
}

// UpdateReservation replaces the details of reservation id.
func (c *Client) UpdateReservation(ctx context.Context, id uint64, f ReservationForm) (*model.Reservation, error) {
    var out model.Reservation
    if err := c.do(ctx, http.MethodPut, reservationPath(id), nil, f, &out); err != nil {
        return nil, err
    }
    return &out, nil
}

func reservationPath(id uint64) string {
    return "/reservations/" + strconv.FormatUint(id, 10)
}
