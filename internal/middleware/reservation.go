package middleware

import (
    "context"
    "errors"
    "io"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/model"
    "github.com/iliyamo/restaurant-reservation/internal/repository"
    "github.com/iliyamo/restaurant-reservation/internal/validation"
)

// Context keys set by the reservation middlewares.
const (
    CtxReservation = "reservation"       // *model.Reservation loaded by ReservationExists
    CtxDraft       = "reservation_draft" // *model.Reservation built by ValidateReservation
)

// ReservationReader is the lookup ReservationExists needs.
type ReservationReader interface {
    GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
}

// ReservationExists loads the reservation named by the :reservation_id path
// parameter and stores it under CtxReservation.  Unknown and malformed ids
// both answer 404.
func ReservationExists(store ReservationReader) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := c.Param("reservation_id")
            id, err := strconv.ParseUint(raw, 10, 64)
            if err != nil || id == 0 {
                return validation.NotFound(raw)
            }
            res, err := store.GetByID(c.Request().Context(), id)
            if errors.Is(err, repository.ErrReservationNotFound) {
                return validation.NotFound(raw)
            }
            if err != nil {
                return err
            }
            c.Set(CtxReservation, res)
            return next(c)
        }
    }
}

// MaxBodyBytes caps the reservation body ValidateReservation will read.
const MaxBodyBytes = 64 << 10

// ValidateReservation decodes the {"data": ...} envelope and runs the
// validators returned by chain against it.  The first failure is returned
// to echo's error handler; on success the normalised record is stored
// under CtxDraft.
func ValidateReservation(chain func() []validation.Validator, now func() time.Time, loc *time.Location) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxBodyBytes+1))
            if err != nil {
                return validation.Invalid("request body could not be read")
            }
            if len(raw) > MaxBodyBytes {
                return echo.ErrStatusRequestEntityTooLarge
            }
            body, err := validation.ParseEnvelope(raw)
            if err != nil {
                return err
            }
            state := &validation.State{Body: body, Now: now(), Location: loc}
            if existing, ok := c.Get(CtxReservation).(*model.Reservation); ok {
                state.Existing = existing
            }
            if err := validation.Run(state, chain()...); err != nil {
                return err
            }
            c.Set(CtxDraft, &state.Draft)
            return next(c)
        }
    }
}
