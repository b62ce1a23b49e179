package dashboard

import (
    "errors"
    "fmt"
    "io"
    "strconv"
    "text/tabwriter"

    "github.com/iliyamo/restaurant-reservation/internal/datetime"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// genericError is shown when the API could not be reached at all.
const genericError = "Unable to reach the reservation service"

// ErrorText is the alert shown for err: the API's own message, or a
// generic line for network failures.
func ErrorText(err error) string {
    var apiErr *APIError
    if errors.As(err, &apiErr) {
        return apiErr.Message
    }
    return genericError
}

// Render writes both panels of snap.  A failed panel prints its alert and
// the other panel is still written.
func Render(w io.Writer, snap Snapshot) error {
    if _, err := fmt.Fprintf(w, "Reservations for %s\n\n", datetime.FormatDate(snap.View.Date)); err != nil {
        return err
    }
    if snap.ReservationsErr != nil {
        fmt.Fprintf(w, "  ! %s\n", ErrorText(snap.ReservationsErr))
    } else if err := RenderReservations(w, snap.Reservations); err != nil {
        return err
    }
    fmt.Fprint(w, "\nTables\n\n")
    if snap.TablesErr != nil {
        _, err := fmt.Fprintf(w, "  ! %s\n", ErrorText(snap.TablesErr))
        return err
    }
    return RenderTables(w, snap.Tables)
}

// RenderReservations writes one row per reservation.
func RenderReservations(w io.Writer, list []model.Reservation) error {
    if len(list) == 0 {
        _, err := fmt.Fprintln(w, "  No reservations found.")
        return err
    }
    tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
    fmt.Fprintln(tw, "  ID\tNAME\tPHONE\tDATE\tTIME\tPEOPLE\tSTATUS")
    for _, r := range list {
        fmt.Fprintf(tw, "  %d\t%s, %s\t%s\t%s\t%s\t%d\t%s\n",
            r.ID, r.LastName, r.FirstName, datetime.FormatPhone(r.MobileNumber),
            r.ReservationDate, datetime.FormatTime(r.ReservationTime), r.People, r.Status)
    }
    return tw.Flush()
}

// RenderTables writes one row per table with its occupancy.
func RenderTables(w io.Writer, tables []model.Table) error {
    if len(tables) == 0 {
        _, err := fmt.Fprintln(w, "  No tables.")
        return err
    }
    tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
    fmt.Fprintln(tw, "  ID\tTABLE\tCAPACITY\tSTATUS")
    for _, t := range tables {
        status := "Free"
        if t.Occupied() {
            status = "Occupied by " + strconv.FormatUint(*t.ReservationID, 10)
        }
        fmt.Fprintf(tw, "  %d\t%s\t%d\t%s\n", t.ID, t.TableName, t.Capacity, status)
    }
    return tw.Flush()
}
