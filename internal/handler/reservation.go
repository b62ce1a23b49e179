package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/restaurant-reservation/internal/datetime"
    "github.com/iliyamo/restaurant-reservation/internal/middleware"
    "github.com/iliyamo/restaurant-reservation/internal/model"
    "github.com/iliyamo/restaurant-reservation/internal/queue"
    "github.com/iliyamo/restaurant-reservation/internal/repository"
    "github.com/iliyamo/restaurant-reservation/internal/validation"
)

// ReservationStore is the persistence the reservation routes need.
// *repository.ReservationRepo implements it.
type ReservationStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
    ListByDate(ctx context.Context, date string) ([]model.Reservation, error)
    SearchByMobile(ctx context.Context, number string) ([]model.Reservation, error)
    Create(ctx context.Context, res *model.Reservation) error
    Update(ctx context.Context, id uint64, res *model.Reservation) (*model.Reservation, error)
    UpdateStatus(ctx context.Context, id uint64, status string) (string, error)
}

// EventPublisher sends reservation events to the broker.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// publishTimeout bounds how long a request waits on the broker.
const publishTimeout = 2 * time.Second

// dbTimeout bounds every database call made by a handler.
const dbTimeout = 5 * time.Second

// ReservationHandler serves /reservations.  Validation has already run in
// middleware by the time these handlers are called; they only persist and
// answer.
type ReservationHandler struct {
    Store  ReservationStore
    Events EventPublisher
}

func NewReservationHandler(store ReservationStore, events EventPublisher) *ReservationHandler {
    return &ReservationHandler{Store: store, Events: events}
}

// List answers GET /reservations.  ?date= lists one day's open bookings
// and wins over ?mobile_number=, which searches every booking by phone.
func (h *ReservationHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    var (
        list []model.Reservation
        err  error
    )
    if date := c.QueryParam("date"); date != "" {
        if _, perr := datetime.ParseDate(date); perr != nil {
            return validation.Invalid("date must be in valid format")
        }
        list, err = h.Store.ListByDate(ctx, date)
    } else if mobile := c.QueryParam("mobile_number"); mobile != "" {
        list, err = h.Store.SearchByMobile(ctx, mobile)
    } else {
        return validation.Invalid("date or mobile_number query parameter is required")
    }
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"data": list})
}

// Create answers POST /reservations with the stored record.
func (h *ReservationHandler) Create(c echo.Context) error {
    draft := c.Get(middleware.CtxDraft).(*model.Reservation)

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    res := *draft
    if err := h.Store.Create(ctx, &res); err != nil {
        return err
    }
    publishEvent(c, h.Events, queue.EventCreated, &res, 0)
    return c.JSON(http.StatusCreated, echo.Map{"data": res})
}

// Read answers GET /reservations/:reservation_id.
func (h *ReservationHandler) Read(c echo.Context) error {
    res := c.Get(middleware.CtxReservation).(*model.Reservation)
    return c.JSON(http.StatusOK, echo.Map{"data": res})
}

// Update answers PUT /reservations/:reservation_id.  The stored status is
// kept; status changes go through UpdateStatus.
func (h *ReservationHandler) Update(c echo.Context) error {
    existing := c.Get(middleware.CtxReservation).(*model.Reservation)
    draft := c.Get(middleware.CtxDraft).(*model.Reservation)

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    res, err := h.Store.Update(ctx, existing.ID, draft)
    if errors.Is(err, repository.ErrReservationNotFound) {
        return validation.NotFound(c.Param("reservation_id"))
    }
    if err != nil {
        return err
    }
    publishEvent(c, h.Events, queue.EventUpdated, res, 0)
    return c.JSON(http.StatusOK, echo.Map{"data": res})
}

// UpdateStatus answers PUT /reservations/:reservation_id/status with the
// stored status.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
    existing := c.Get(middleware.CtxReservation).(*model.Reservation)
    draft := c.Get(middleware.CtxDraft).(*model.Reservation)

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    status, err := h.Store.UpdateStatus(ctx, existing.ID, draft.Status)
    if errors.Is(err, repository.ErrReservationNotFound) {
        return validation.NotFound(c.Param("reservation_id"))
    }
    if err != nil {
        return err
    }
    updated := *existing
    updated.Status = status
    publishEvent(c, h.Events, queue.EventStatusChanged, &updated, 0)
    return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{"status": status}})
}

// publishEvent emits an event for res.  Broker failures are logged and
// never change the response.
func publishEvent(c echo.Context, events EventPublisher, typ string, res *model.Reservation, tableID uint64) {
    if events == nil {
        return
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), publishTimeout)
    defer cancel()
    ev := queue.ReservationEvent{
        Type:            typ,
        ReservationID:   res.ID,
        Status:          res.Status,
        FirstName:       res.FirstName,
        LastName:        res.LastName,
        MobileNumber:    res.MobileNumber,
        People:          res.People,
        ReservationDate: res.ReservationDate,
        ReservationTime: res.ReservationTime,
        TableID:         tableID,
    }
    if err := events.Publish(ctx, ev); err != nil {
        logrus.WithError(err).WithFields(logrus.Fields{
            "type":           typ,
            "reservation_id": res.ID,
        }).Debug("event not delivered")
    }
}
