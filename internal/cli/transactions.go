package cli

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"dompet/internal/core"
	"dompet/internal/report"
)

type addCmd struct {
	app         *App
	typ         string
	amount      string
	description string
	date        string
	clock       string
}

func (*addCmd) Name() string { return "add" }
func (*addCmd) Synopsis() string { return "record an income or an expense" }
func (*addCmd) Usage() string {
	return `dompetctl add -type expense|income -amount <amount> -desc <description> [-date YYYY-MM-DD] [-time HH:MM]

  Records a transaction and updates the balance. An expense larger than the
  current balance is refused.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.typ, "type", "expense", "transaction type: expense or income")
	f.StringVar(&c.amount, "amount", "", "positive amount, up to two decimals")
	f.StringVar(&c.description, "desc", "", "description")
	f.StringVar(&c.date, "date", "", "date of the transaction (default: today)")
	f.StringVar(&c.clock, "time", "", "time of day HH:MM (default: now)")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	typ, err := core.ParseTransactionType(c.typ)
	if err != nil {
		return c.app.fail(err)
	}
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		return c.app.fail(&core.ValidationError{Field: "amount", Err: err})
	}

	return c.app.run(ctx, func(l *Ledger) error {
		at, err := occurredAt(c.date, c.clock, c.app.now(), l.Location())
		if err != nil {
			return err
		}
		t, err := l.AddTransaction(ctx, typ, amount, c.description, at)
		if err != nil {
			return err
		}
		balance, err := l.Balance(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Added %s %s %q on %s %s (timestamp %d)\nBalance: %s\n",
			t.Type, t.Amount.Plain(), t.Description, t.Date, t.Time, t.Timestamp, balance)
		return nil
	})
}

type deleteCmd struct {
	app *App
}

func (*deleteCmd) Name() string { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a transaction by timestamp" }
func (*deleteCmd) Usage() string {
	return `dompetctl delete <timestamp>

  Removes the transaction and reverses its effect on the balance.
`
}

func (*deleteCmd) SetFlags(*flag.FlagSet) {}

func (c *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage(f, "delete takes exactly one timestamp")
	}
	ts, err := strconv.ParseInt(f.Arg(0), 10, 64)
	if err != nil || ts <= 0 {
		return c.app.usage(f, "invalid timestamp %q", f.Arg(0))
	}

	return c.app.run(ctx, func(l *Ledger) error {
		if err := l.DeleteTransaction(ctx, ts); err != nil {
			return err
		}
		balance, err := l.Balance(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Deleted %d\nBalance: %s\n", ts, balance)
		return nil
	})
}

type listCmd struct {
	app    *App
	months monthFlags
	typ    string
	search string
}

func (*listCmd) Name() string { return "list" }
func (*listCmd) Synopsis() string { return "list the transactions of a month" }
func (*listCmd) Usage() string {
	return `dompetctl list [-month 1-12] [-year YYYY] [-type all|expense|income] [-q text]

  Lists a month's transactions, newest first.
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	c.months.set(f)
	f.StringVar(&c.typ, "type", "all", "filter by type: all, expense or income")
	f.StringVar(&c.search, "q", "", "case-insensitive description search")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var typ core.TransactionType
	if t := strings.ToLower(strings.TrimSpace(c.typ)); t != "" && t != "all" {
		parsed, err := core.ParseTransactionType(t)
		if err != nil {
			return c.app.fail(err)
		}
		typ = parsed
	}

	return c.app.run(ctx, func(l *Ledger) error {
		month, year, err := c.months.resolve(c.app.now(), l.Location())
		if err != nil {
			return err
		}
		snap, err := l.ExportSnapshot(ctx)
		if err != nil {
			return err
		}
		txs := report.Filter(snap, report.Query{Month: month, Year: year, Type: typ, Search: c.search})
		if len(txs) == 0 {
			fmt.Fprintf(c.app.Out, "No transactions in %s %d\n", core.MonthName(month), year)
			return nil
		}
		w := c.app.table()
		writeTransactions(w, txs)
		return w.Flush()
	})
}

type recentCmd struct {
	app *App
	n   int
}

func (*recentCmd) Name() string { return "recent" }
func (*recentCmd) Synopsis() string { return "show the most recently recorded transactions" }
func (*recentCmd) Usage() string {
	return `dompetctl recent [-n 5]
`
}

func (c *recentCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.n, "n", report.DefaultRecent, "number of transactions")
}

func (c *recentCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.n <= 0 {
		return c.app.usage(f, "-n must be positive")
	}
	return c.app.run(ctx, func(l *Ledger) error {
		snap, err := l.ExportSnapshot(ctx)
		if err != nil {
			return err
		}
		w := c.app.table()
		writeTransactions(w, report.RecentTransactions(snap, c.n))
		return w.Flush()
	})
}

type balanceCmd struct {
	app *App
}

func (*balanceCmd) Name() string { return "balance" }
func (*balanceCmd) Synopsis() string { return "print the current balance" }
func (*balanceCmd) Usage() string { return "dompetctl balance\n" }
func (*balanceCmd) SetFlags(*flag.FlagSet) {}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(l *Ledger) error {
		balance, err := l.Balance(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.app.Out, balance)
		return nil
	})
}

type setBalanceCmd struct {
	app *App
}

func (*setBalanceCmd) Name() string { return "set-balance" }
func (*setBalanceCmd) Synopsis() string { return "overwrite the balance" }
func (*setBalanceCmd) Usage() string {
	return `dompetctl set-balance <amount>

  Replaces the balance without touching the transactions, so running
  balances derived from history stop adding up.
`
}

func (*setBalanceCmd) SetFlags(*flag.FlagSet) {}

func (c *setBalanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage(f, "set-balance takes exactly one amount")
	}
	balance, err := core.ParseBalance(f.Arg(0))
	if err != nil {
		return c.app.fail(&core.ValidationError{Field: "balance", Err: err})
	}
	return c.app.run(ctx, func(l *Ledger) error {
		if err := l.SetBalance(ctx, balance); err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Balance: %s\n", balance.Round())
		return nil
	})
}
