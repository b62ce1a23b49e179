// Command dashboard is the staff terminal view of the reservation API.
//
//	dashboard day --date 2024-06-10
//	dashboard next --date 2024-06-10
//	dashboard find --mobile 555-0100
//	dashboard new --first Ada --last Lovelace --mobile 555-0100 --people 2 --date 2024-06-10 --time 18:00
//	dashboard edit 4 --people 5
package main

import (
    "context"
    "errors"
    "fmt"
    "os"
    "os/signal"
    "strconv"
    "time"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"
    "github.com/spf13/cobra"

    "github.com/iliyamo/restaurant-reservation/internal/dashboard"
    "github.com/iliyamo/restaurant-reservation/internal/model"
)

type options struct {
    api   string
    token string
    tz    string
    date  string
}

func main() {
    _ = godotenv.Load()
    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
    defer stop()
    if err := newRootCmd().ExecuteContext(ctx); err != nil {
        os.Exit(1)
    }
}

func newRootCmd() *cobra.Command {
    opts := &options{}
    root := &cobra.Command{
        Use:           "dashboard",
        Short:         "Browse and manage the day's reservations",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    root.PersistentFlags().StringVar(&opts.api, "api", envOr("RESERVATION_API_URL", "http://localhost:5001"), "base URL of the reservation API")
    root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("RESERVATION_API_TOKEN"), "staff access token")
    root.PersistentFlags().StringVar(&opts.tz, "tz", envOr("RESTAURANT_TZ", "UTC"), "restaurant timezone")

    root.AddCommand(
        dayCmd(opts, "day", "Show reservations and tables for a day", 0),
        dayCmd(opts, "today", "Show today's reservations and tables", dashboard.ActionToday),
        dayCmd(opts, "next", "Show the day after --date", dashboard.ActionNext),
        dayCmd(opts, "previous", "Show the day before --date", dashboard.ActionPrevious),
        findCmd(opts),
        newCmd(opts),
        editCmd(opts),
        statusCmd(opts, "cancel", model.StatusCancelled),
        seatCmd(opts),
        finishCmd(opts),
    )
    return root
}

func envOr(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func dayCmd(opts *options, use, short string, action dashboard.Action) *cobra.Command {
    cmd := &cobra.Command{
        Use:   use,
        Short: short,
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, _ []string) error {
            loc, err := time.LoadLocation(opts.tz)
            if err != nil {
                return fail(fmt.Errorf("invalid --tz: %w", err))
            }
            now := time.Now()
            view := dashboard.NewView(opts.date, now, loc)
            if action != 0 {
                view = dashboard.Reduce(view, action, now, loc)
            }
            loader := dashboard.NewLoader(dashboard.NewClient(opts.api, opts.token))
            defer loader.Close()
            snap, err := loader.Load(cmd.Context(), view)
            if err != nil {
                return fail(err)
            }
            return dashboard.Render(cmd.OutOrStdout(), snap)
        },
    }
    if action != dashboard.ActionToday {
        cmd.Flags().StringVar(&opts.date, "date", "", "day to show, YYYY-MM-DD (default today)")
    }
    return cmd
}

func findCmd(opts *options) *cobra.Command {
    var mobile string
    cmd := &cobra.Command{
        Use:   "find",
        Short: "Search reservations by mobile number",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, _ []string) error {
            list, err := dashboard.NewClient(opts.api, opts.token).SearchReservations(cmd.Context(), mobile)
            if err != nil {
                return fail(err)
            }
            return dashboard.RenderReservations(cmd.OutOrStdout(), list)
        },
    }
    cmd.Flags().StringVar(&mobile, "mobile", "", "mobile number or part of it")
    _ = cmd.MarkFlagRequired("mobile")
    return cmd
}

// bindForm registers one flag per form field on cmd.
func bindForm(cmd *cobra.Command, f *dashboard.ReservationForm) {
    cmd.Flags().StringVar(&f.FirstName, "first", "", "first name")
    cmd.Flags().StringVar(&f.LastName, "last", "", "last name")
    cmd.Flags().StringVar(&f.MobileNumber, "mobile", "", "mobile number")
    cmd.Flags().IntVar(&f.People, "people", 0, "party size")
    cmd.Flags().StringVar(&f.ReservationDate, "date", "", "reservation date, YYYY-MM-DD")
    cmd.Flags().StringVar(&f.ReservationTime, "time", "", "reservation time, HH:MM")
}

func newCmd(opts *options) *cobra.Command {
    var form dashboard.ReservationForm
    cmd := &cobra.Command{
        Use:   "new",
        Short: "Create a reservation",
        Args:  cobra.NoArgs,
        RunE: func(cmd *cobra.Command, _ []string) error {
            res, err := dashboard.NewClient(opts.api, opts.token).CreateReservation(cmd.Context(), form)
            if err != nil {
                return fail(err)
            }
            return dashboard.RenderReservations(cmd.OutOrStdout(), []model.Reservation{*res})
        },
    }
    bindForm(cmd, &form)
    for _, name := range []string{"first", "last", "mobile", "people", "date", "time"} {
        _ = cmd.MarkFlagRequired(name)
    }
    return cmd
}

// editCmd loads the reservation, overlays the flags that were given and
// submits the whole form back.
func editCmd(opts *options) *cobra.Command {
    var flags dashboard.ReservationForm
    cmd := &cobra.Command{
        Use:   "edit RESERVATION_ID",
        Short: "Change the details of a reservation",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            id, err := parseID(args[0])
            if err != nil {
                return fail(err)
            }
            client := dashboard.NewClient(opts.api, opts.token)
            cur, err := client.ReadReservation(cmd.Context(), id)
            if err != nil {
                return fail(err)
            }
            form := dashboard.FormFrom(cur)
            set := cmd.Flags().Changed
            if set("first") {
                form.FirstName = flags.FirstName
            }
            if set("last") {
                form.LastName = flags.LastName
            }
            if set("mobile") {
                form.MobileNumber = flags.MobileNumber
            }
            if set("people") {
                form.People = flags.People
            }
            if set("date") {
                form.ReservationDate = flags.ReservationDate
            }
            if set("time") {
                form.ReservationTime = flags.ReservationTime
            }
            res, err := client.UpdateReservation(cmd.Context(), id, form)
            if err != nil {
                return fail(err)
            }
            return dashboard.RenderReservations(cmd.OutOrStdout(), []model.Reservation{*res})
        },
    }
    bindForm(cmd, &flags)
    return cmd
}

func statusCmd(opts *options, use, status string) *cobra.Command {
    return &cobra.Command{
        Use:   use + " RESERVATION_ID",
        Short: "Set a reservation to " + status,
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            id, err := parseID(args[0])
            if err != nil {
                return fail(err)
            }
            got, err := dashboard.NewClient(opts.api, opts.token).UpdateStatus(cmd.Context(), id, status)
            if err != nil {
                return fail(err)
            }
            fmt.Fprintf(cmd.OutOrStdout(), "Reservation %d is %s\n", id, got)
            return nil
        },
    }
}

func seatCmd(opts *options) *cobra.Command {
    return &cobra.Command{
        Use:   "seat TABLE_ID RESERVATION_ID",
        Short: "Seat a reservation at a table",
        Args:  cobra.ExactArgs(2),
        RunE: func(cmd *cobra.Command, args []string) error {
            tableID, err := parseID(args[0])
            if err != nil {
                return fail(err)
            }
            rid, err := parseID(args[1])
            if err != nil {
                return fail(err)
            }
            if err := dashboard.NewClient(opts.api, opts.token).Seat(cmd.Context(), tableID, rid); err != nil {
                return fail(err)
            }
            fmt.Fprintf(cmd.OutOrStdout(), "Reservation %d seated at table %d\n", rid, tableID)
            return nil
        },
    }
}

func finishCmd(opts *options) *cobra.Command {
    return &cobra.Command{
        Use:   "finish TABLE_ID",
        Short: "Free a table and finish its reservation",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            tableID, err := parseID(args[0])
            if err != nil {
                return fail(err)
            }
            if err := dashboard.NewClient(opts.api, opts.token).Finish(cmd.Context(), tableID); err != nil {
                return fail(err)
            }
            fmt.Fprintf(cmd.OutOrStdout(), "Table %d is free\n", tableID)
            return nil
        },
    }
}

func parseID(s string) (uint64, error) {
    id, err := strconv.ParseUint(s, 10, 64)
    if err != nil || id == 0 {
        return 0, fmt.Errorf("invalid id %q", s)
    }
    return id, nil
}

// fail logs err the way the dashboard shows alerts and returns it so the
// process exits non-zero.
func fail(err error) error {
    var apiErr *dashboard.APIError
    switch {
    case errors.As(err, &apiErr):
        logrus.WithField("status", apiErr.Status).Error(apiErr.Message)
    case errors.Is(err, context.Canceled):
        logrus.Warn("cancelled")
    default:
        logrus.WithError(err).Error(dashboard.ErrorText(err))
    }
    return err
}
