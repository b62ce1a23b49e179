package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/restaurant-reservation/internal/datetime"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// ErrReservationNotFound indicates that no reservation has the requested id.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRepo persists reservations in the `reservations` table.  Dates
// and times are formatted by MySQL so the repository hands out the same
// "YYYY-MM-DD" and "HH:MM" strings the API accepts.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB for callers that need a transaction
// spanning repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `reservation_id, first_name, last_name, mobile_number, people,
    DATE_FORMAT(reservation_date, '%Y-%m-%d'), TIME_FORMAT(reservation_time, '%H:%i'),
    status, created_at, updated_at`

type rowScanner interface {
    Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
    var res model.Reservation
    err := row.Scan(&res.ID, &res.FirstName, &res.LastName, &res.MobileNumber, &res.People,
        &res.ReservationDate, &res.ReservationTime, &res.Status, &res.CreatedAt, &res.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &res, nil
}

// GetByID returns the reservation with the given id or
// ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_id = ?`
    res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrReservationNotFound
    }
    return res, err
}

// Create inserts res and fills in the generated id, status and timestamps.
// An empty status is stored as booked.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    if res.Status == "" {
        res.Status = model.StatusBooked
    }
    const q = `INSERT INTO reservations
        (first_name, last_name, mobile_number, people, reservation_date, reservation_time, status)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, res.FirstName, res.LastName, res.MobileNumber,
        res.People, res.ReservationDate, res.ReservationTime, res.Status)
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    stored, err := r.GetByID(ctx, uint64(id))
    if err != nil {
        return err
    }
    *res = *stored
    return nil
}

// Update overwrites the guest fields of reservation id.  Status is left
// alone; it only changes through UpdateStatus or the table operations.
func (r *ReservationRepo) Update(ctx context.Context, id uint64, res *model.Reservation) (*model.Reservation, error) {
    const q = `UPDATE reservations
        SET first_name = ?, last_name = ?, mobile_number = ?, people = ?,
            reservation_date = ?, reservation_time = ?
        WHERE reservation_id = ?`
    if _, err := r.db.ExecContext(ctx, q, res.FirstName, res.LastName, res.MobileNumber,
        res.People, res.ReservationDate, res.ReservationTime, id); err != nil {
        return nil, err
    }
    // RowsAffected is 0 for an unchanged row too, so existence is decided by
    // reading the row back.
    return r.GetByID(ctx, id)
}

// UpdateStatus sets the status of reservation id and returns the stored
// value.  Any status other than seated releases the table the reservation
// holds, in the same transaction, so a cancelled or finished party never
// keeps a table occupied.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status string) (string, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return "", err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err := r.UpdateStatusTx(ctx, tx, id, status); err != nil {
        return "", err
    }
    if status != model.StatusSeated {
        if _, err := tx.ExecContext(ctx,
            `UPDATE tables SET reservation_id = NULL WHERE reservation_id = ?`, id); err != nil {
            return "", err
        }
    }
    var stored string
    err = tx.QueryRowContext(ctx,
        `SELECT status FROM reservations WHERE reservation_id = ?`, id).Scan(&stored)
    if errors.Is(err, sql.ErrNoRows) {
        return "", ErrReservationNotFound
    }
    if err != nil {
        return "", err
    }
    if err := tx.Commit(); err != nil {
        return "", err
    }
    committed = true
    return stored, nil
}

// UpdateStatusTx is UpdateStatus inside a caller-owned transaction.  It
// does not read the row back.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE reservation_id = ?`, status, id)
    return err
}

// GetByIDForUpdateTx reads and row-locks a reservation inside tx.
func (r *ReservationRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_id = ? FOR UPDATE`
    res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrReservationNotFound
    }
    return res, err
}

// ListByDate returns the reservations of one day that still need the
// floor's attention (finished and cancelled are left out), earliest first.
func (r *ReservationRepo) ListByDate(ctx context.Context, date string) ([]model.Reservation, error) {
    q := `SELECT ` + reservationColumns + ` FROM reservations
        WHERE reservation_date = ? AND status NOT IN ('finished', 'cancelled')
        ORDER BY reservation_time, reservation_id`
    return r.list(ctx, q, date)
}

// SearchByMobile returns every reservation whose phone number contains
// number, ignoring punctuation on both sides.  Results are ordered by date
// and time.
func (r *ReservationRepo) SearchByMobile(ctx context.Context, number string) ([]model.Reservation, error) {
    term := datetime.Digits(number)
    if term == "" {
        term = number
    }
    q := `SELECT ` + reservationColumns + ` FROM reservations
        WHERE REPLACE(REPLACE(REPLACE(REPLACE(REPLACE(mobile_number, '(', ''), ')', ''), '-', ''), ' ', ''), '+', '')
            LIKE CONCAT('%', ?, '%')
        ORDER BY reservation_date, reservation_time, reservation_id`
    return r.list(ctx, q, term)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}
