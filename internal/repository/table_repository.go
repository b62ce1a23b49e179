package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// ErrTableNotFound indicates that no table has the requested id.
var ErrTableNotFound = errors.New("table not found")

// TableRepo persists dining tables and performs the seat / finish
// operations that move a reservation through seated and finished.
type TableRepo struct {
    db           *sql.DB
    reservations *ReservationRepo
}

// NewTableRepo returns a TableRepo.  The reservation repository is used
// for the status changes that accompany seating and clearing.
func NewTableRepo(db *sql.DB, reservations *ReservationRepo) *TableRepo {
    return &TableRepo{db: db, reservations: reservations}
}

func scanTable(row rowScanner) (*model.Table, error) {
    var (
        t   model.Table
        rid sql.NullInt64
    )
    if err := row.Scan(&t.ID, &t.TableName, &t.Capacity, &rid); err != nil {
        return nil, err
    }
    if rid.Valid {
        id := uint64(rid.Int64)
        t.ReservationID = &id
    }
    return &t, nil
}

// List returns every table ordered by name.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT table_id, table_name, capacity, reservation_id FROM tables ORDER BY table_name`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Table, 0)
    for rows.Next() {
        t, err := scanTable(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *t)
    }
    return out, rows.Err()
}

// Create inserts a free table and assigns its id.
func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO tables (table_name, capacity) VALUES (?, ?)`, t.TableName, t.Capacity)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    t.ReservationID = nil
    return nil
}

func (r *TableRepo) getForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Table, error) {
    t, err := scanTable(tx.QueryRowContext(ctx,
        `SELECT table_id, table_name, capacity, reservation_id FROM tables WHERE table_id = ? FOR UPDATE`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrTableNotFound
    }
    return t, err
}

// Seat assigns reservation reservationID to table tableID and marks the
// reservation seated.  Both rows are locked for the duration of the
// transaction so two hosts cannot seat the same table.
func (r *TableRepo) Seat(ctx context.Context, tableID, reservationID uint64) (*model.Table, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    t, err := r.getForUpdateTx(ctx, tx, tableID)
    if err != nil {
        return nil, err
    }
    res, err := r.reservations.GetByIDForUpdateTx(ctx, tx, reservationID)
    if err != nil {
        return nil, err
    }
    if t.Occupied() {
        return nil, ErrConflict
    }
    if res.Status != model.StatusBooked {
        return nil, ErrNotBooked
    }
    if res.People > t.Capacity {
        return nil, ErrCapacity
    }
    if _, err := tx.ExecContext(ctx,
        `UPDATE tables SET reservation_id = ? WHERE table_id = ?`, reservationID, tableID); err != nil {
        return nil, err
    }
    if err := r.reservations.UpdateStatusTx(ctx, tx, reservationID, model.StatusSeated); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    t.ReservationID = &reservationID
    return t, nil
}

// Finish clears table tableID and marks its reservation finished.  It
// returns the id of the reservation that was seated there.
func (r *TableRepo) Finish(ctx context.Context, tableID uint64) (uint64, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    t, err := r.getForUpdateTx(ctx, tx, tableID)
    if err != nil {
        return 0, err
    }
    if !t.Occupied() {
        return 0, ErrNotOccupied
    }
    rid := *t.ReservationID
    if _, err := tx.ExecContext(ctx,
        `UPDATE tables SET reservation_id = NULL WHERE table_id = ?`, tableID); err != nil {
        return 0, err
    }
    if err := r.reservations.UpdateStatusTx(ctx, tx, rid, model.StatusFinished); err != nil {
        return 0, err
    }
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return rid, nil
}
