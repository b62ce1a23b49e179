package dashboard

import (
    "context"
    "errors"
    "sync"

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// ErrSuperseded is returned by Load when a newer load started before this
// one finished.  Its snapshot must not be shown.
var ErrSuperseded = errors.New("dashboard: load superseded")

// Source is what the loader fetches from.  *Client implements it.
type Source interface {
    ListReservations(ctx context.Context, date string) ([]model.Reservation, error)
    ListTables(ctx context.Context) ([]model.Table, error)
}

// Snapshot is one rendering of the dashboard.  Each panel keeps its own
// error so a failed table fetch still shows the reservations and the
// other way round.
type Snapshot struct {
    View            View
    Reservations    []model.Reservation
    ReservationsErr error
    Tables          []model.Table
    TablesErr       error
}

// Loader fetches snapshots.  Starting a load cancels the one in flight.
type Loader struct {
    src Source

    mu     sync.Mutex
    cancel context.CancelFunc
    seq    uint64
}

func NewLoader(src Source) *Loader {
    return &Loader{src: src}
}

// Load fetches the reservations of v.Date and the table list
// concurrently.  Fetch errors land in the snapshot; the returned error is
// ErrSuperseded or the error of ctx.
func (l *Loader) Load(ctx context.Context, v View) (Snapshot, error) {
    l.mu.Lock()
    if l.cancel != nil {
        l.cancel()
    }
    ctx, cancel := context.WithCancel(ctx)
    l.cancel = cancel
    l.seq++
    seq := l.seq
    l.mu.Unlock()

    defer func() {
        l.mu.Lock()
        if l.seq == seq {
            l.cancel = nil
        }
        l.mu.Unlock()
        cancel()
    }()

    snap := Snapshot{View: v}
    var wg sync.WaitGroup
    wg.Add(2)
    go func() {
        defer wg.Done()
        snap.Reservations, snap.ReservationsErr = l.src.ListReservations(ctx, v.Date)
    }()
    go func() {
        defer wg.Done()
        snap.Tables, snap.TablesErr = l.src.ListTables(ctx)
    }()
    wg.Wait()

    l.mu.Lock()
    stale := l.seq != seq
    l.mu.Unlock()
    if stale {
        return Snapshot{View: v}, ErrSuperseded
    }
    if err := ctx.Err(); err != nil {
        return Snapshot{View: v}, err
    }
    return snap, nil
}

// Close cancels any load in flight.
func (l *Loader) Close() {
    l.mu.Lock()
    defer l.mu.Unlock()
    if l.cancel != nil {
        l.cancel()
        l.cancel = nil
    }
}
