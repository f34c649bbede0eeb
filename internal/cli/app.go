package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"dompet/internal/core"
)

// App is the state the dompetctl subcommands share.
type App struct {
	// Open returns the ledger a command works on. It is called at most once
	// per command.
	Open func(ctx context.Context) (*Ledger, error)
	Out  io.Writer
	Err  io.Writer
	Now  func() time.Time
}

// Register adds every dompetctl subcommand to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(&addCmd{app: app}, "transactions")
	c.Register(&deleteCmd{app: app}, "transactions")
	c.Register(&listCmd{app: app}, "transactions")
	c.Register(&recentCmd{app: app}, "transactions")

	c.Register(&balanceCmd{app: app}, "balance")
	c.Register(&setBalanceCmd{app: app}, "balance")

	c.Register(&reportCmd{app: app}, "reports")
	c.Register(&monthlyCmd{app: app}, "reports")

	c.Register(&exportCmd{app: app}, "data")
	c.Register(&importCmd{app: app}, "data")
	c.Register(&clearCmd{app: app}, "data")
	c.Register(&pruneCmd{app: app}, "data")
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// run opens the ledger, hands it to fn and closes it again.
func (a *App) run(ctx context.Context, fn func(*Ledger) error) subcommands.ExitStatus {
	l, err := a.Open(ctx)
	if err != nil {
		return a.fail(err)
	}
	defer l.Close()

	if err := fn(l); err != nil {
		return a.fail(err)
	}
	return subcommands.ExitSuccess
}

func (a *App) fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, "Error: %v\n", err)
	return subcommands.ExitFailure
}

func (a *App) usage(f *flag.FlagSet, format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, "Error: "+format+"\n", args...)
	f.Usage()
	return subcommands.ExitUsageError
}

func (a *App) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.Out, 0, 0, 2, ' ', 0)
}

// monthFlags is the -month/-year pair; -month counts from 1 on the command
// line and 0 means the current month.
type monthFlags struct {
	month int
	year  int
}

func (m *monthFlags) set(f *flag.FlagSet) {
	f.IntVar(&m.month, "month", 0, "month 1-12 (default: current month)")
	f.IntVar(&m.year, "year", 0, "year (default: current year)")
}

// resolve returns the 0-based month and year, filled in from now in loc.
func (m *monthFlags) resolve(now time.Time, loc *time.Location) (month, year int, err error) {
	today := core.DateOf(now, loc)
	month, year = int(today.Month())-1, today.Year()
	if m.month != 0 {
		if m.month < 1 || m.month > 12 {
			return 0, 0, fmt.Errorf("month %d out of range 1-12", m.month)
		}
		month = m.month - 1
	}
	if m.year != 0 {
		year = m.year
	}
	return month, year, nil
}

// occurredAt turns optional -date and -time values into an instant in loc.
// Both empty yields the zero time, which the ledger reads as now.
func occurredAt(date, clock string, now time.Time, loc *time.Location) (time.Time, error) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" && clock == "" {
		return time.Time{}, nil
	}
	d := core.DateOf(now, loc)
	if date != "" {
		parsed, err := core.ParseDate(date)
		if err != nil {
			return time.Time{}, &core.ValidationError{Field: "date", Err: err}
		}
		d = parsed
	}
	if clock == "" {
		clock = core.ClockOf(now, loc)
	}
	hm, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: "time", Err: core.ErrInvalidClock}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
}

func writeTransactions(w io.Writer, txs []core.Transaction) {
	fmt.Fprintln(w, "TIMESTAMP\tDATE\tTIME\tTYPE\tAMOUNT\tDESCRIPTION")
	for _, t := range txs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.Timestamp, t.Date, t.Time, t.Type, t.Amount.Plain(), t.Description)
	}
}
