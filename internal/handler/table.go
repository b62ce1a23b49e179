package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/restaurant-reservation/internal/model"
    "github.com/iliyamo/restaurant-reservation/internal/queue"
    "github.com/iliyamo/restaurant-reservation/internal/repository"
    "github.com/iliyamo/restaurant-reservation/internal/validation"
)

// TableStore is the persistence the table routes need.
// *repository.TableRepo implements it.
type TableStore interface {
    List(ctx context.Context) ([]model.Table, error)
    Create(ctx context.Context, t *model.Table) error
    Seat(ctx context.Context, tableID, reservationID uint64) (*model.Table, error)
    Finish(ctx context.Context, tableID uint64) (uint64, error)
}

// TableHandler serves /tables.
type TableHandler struct {
    Store  TableStore
    Events EventPublisher
}

func NewTableHandler(store TableStore, events EventPublisher) *TableHandler {
    return &TableHandler{Store: store, Events: events}
}

type tableData struct {
    TableName string `json:"table_name" validate:"required,min=2"`
    Capacity  int    `json:"capacity" validate:"required,min=1"`
}

type createTableReq struct {
    Data *tableData `json:"data" validate:"required"`
}

type seatData struct {
    ReservationID uint64 `json:"reservation_id" validate:"required"`
}

type seatReq struct {
    Data *seatData `json:"data" validate:"required"`
}

// List answers GET /tables ordered by name.
func (h *TableHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    tables, err := h.Store.List(ctx)
    if err != nil {
        return err
    }
    return c.JSON(http.StatusOK, echo.Map{"data": tables})
}

// Create answers POST /tables.
func (h *TableHandler) Create(c echo.Context) error {
    var req createTableReq
    if err := c.Bind(&req); err != nil {
        return validation.Invalid("request body must be JSON")
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    t := model.Table{TableName: strings.TrimSpace(req.Data.TableName), Capacity: req.Data.Capacity}

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    if err := h.Store.Create(ctx, &t); err != nil {
        return err
    }
    return c.JSON(http.StatusCreated, echo.Map{"data": t})
}

// Seat answers PUT /tables/:table_id/seat by seating the reservation in
// the body at the table.
func (h *TableHandler) Seat(c echo.Context) error {
    tableID, err := tableParam(c)
    if err != nil {
        return err
    }
    var req seatReq
    if err := c.Bind(&req); err != nil {
        return validation.Invalid("request body must be JSON")
    }
    if err := c.Validate(&req); err != nil {
        return err
    }
    rid := req.Data.ReservationID

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    t, err := h.Store.Seat(ctx, tableID, rid)
    switch {
    case errors.Is(err, repository.ErrTableNotFound):
        return tableNotFound(c.Param("table_id"))
    case errors.Is(err, repository.ErrReservationNotFound):
        return validation.NotFound(strconv.FormatUint(rid, 10))
    case errors.Is(err, repository.ErrConflict):
        return validation.Invalid("Table is occupied")
    case errors.Is(err, repository.ErrNotBooked):
        return validation.Invalid("Reservation %d is not booked", rid)
    case errors.Is(err, repository.ErrCapacity):
        return validation.Invalid("Table does not have sufficient capacity")
    case err != nil:
        return err
    }
    publishEvent(c, h.Events, queue.EventSeated,
        &model.Reservation{ID: rid, Status: model.StatusSeated}, t.ID)
    return c.JSON(http.StatusOK, echo.Map{"data": t})
}

// Finish answers DELETE /tables/:table_id/seat by freeing the table and
// finishing the reservation seated there.
func (h *TableHandler) Finish(c echo.Context) error {
    tableID, err := tableParam(c)
    if err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    rid, err := h.Store.Finish(ctx, tableID)
    switch {
    case errors.Is(err, repository.ErrTableNotFound):
        return tableNotFound(c.Param("table_id"))
    case errors.Is(err, repository.ErrNotOccupied):
        return validation.Invalid("Table is not occupied")
    case err != nil:
        return err
    }
    publishEvent(c, h.Events, queue.EventFinished,
        &model.Reservation{ID: rid, Status: model.StatusFinished}, tableID)
    return c.JSON(http.StatusOK, echo.Map{"data": echo.Map{
        "table_id":       tableID,
        "reservation_id": rid,
        "status":         model.StatusFinished,
    }})
}

func tableParam(c echo.Context) (uint64, error) {
    raw := c.Param("table_id")
    id, err := strconv.ParseUint(raw, 10, 64)
    if err != nil || id == 0 {
        return 0, tableNotFound(raw)
    }
    return id, nil
}

func tableNotFound(id string) error {
    return echo.NewHTTPError(http.StatusNotFound, "Table "+id+" cannot be found")
}
