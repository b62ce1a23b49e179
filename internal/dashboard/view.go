// Package dashboard is the staff client of the reservation API: a date
// view driven by pure transitions, a loader that fetches the day's
// reservations and tables together, and the HTTP client both use.
package dashboard

import (
    "time"

    "github.com/iliyamo/restaurant-reservation/internal/datetime"
)

// Action is a navigation step on the dashboard.
type Action int

const (
    ActionToday Action = iota + 1
    ActionNext
    ActionPrevious
)

// String returns the command name of the action.
func (a Action) String() string {
    switch a {
    case ActionToday:
        return "today"
    case ActionNext:
        return "next"
    case ActionPrevious:
        return "previous"
    }
    return "unknown"
}

// View is the dashboard's only state: the selected day.  It is a value;
// transitions return a new View.
type View struct {
    Date string
}

// NewView starts on date when it is a valid "YYYY-MM-DD" date and on
// today in loc otherwise.
func NewView(date string, now time.Time, loc *time.Location) View {
    if _, err := datetime.ParseDate(date); err == nil {
        return View{Date: date}
    }
    return View{Date: datetime.Today(now, loc)}
}

// Reduce applies a to v.  Next and previous move one calendar day; a view
// holding an unparseable date falls back to today first.
func Reduce(v View, a Action, now time.Time, loc *time.Location) View {
    today := datetime.Today(now, loc)
    var (
        date string
        err  error
    )
    switch a {
    case ActionToday:
        return View{Date: today}
    case ActionNext:
        date, err = datetime.Next(v.Date)
    case ActionPrevious:
        date, err = datetime.Previous(v.Date)
    default:
        return v
    }
    if err != nil {
        return View{Date: today}
    }
    return View{Date: date}
}
