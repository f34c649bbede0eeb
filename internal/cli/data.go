package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"dompet/internal/core"
	"dompet/internal/ledger"
)

var (
	errNothingToExport      = errors.New("no transactions to export")
	errConfirmationRequired = errors.New("refusing to clear all data without -confirm")
)

type exportCmd struct {
	app    *App
	output string
}

func (*exportCmd) Name() string { return "export" }
func (*exportCmd) Synopsis() string { return "write the ledger to a JSON file" }
func (*exportCmd) Usage() string {
	return `dompetctl export [-o file]

  Writes the balance and every transaction in the import file format. The
  default file name is expense-tracker-data-YYYY-MM-DD.json; "-o -" writes
  to standard output.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file, - for stdout")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(l *Ledger) error {
		snap, err := l.ExportSnapshot(ctx)
		if err != nil {
			return err
		}
		if len(snap.Transactions) == 0 {
			return errNothingToExport
		}

		if c.output == "-" {
			return core.EncodeSnapshot(c.app.Out, snap)
		}
		path := c.output
		if path == "" {
			path = core.ExportFileName(c.app.now().In(l.Location()))
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		if err := core.EncodeSnapshot(f, snap); err != nil {
			f.Close()
			return fmt.Errorf("write export file: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close export file: %w", err)
		}
		fmt.Fprintf(c.app.Out, "Exported %d transactions to %s\n", len(snap.Transactions), path)
		return nil
	})
}

type importCmd struct {
	app *App
}

func (*importCmd) Name() string { return "import" }
func (*importCmd) Synopsis() string { return "replace the ledger with an exported file" }
func (*importCmd) Usage() string {
	return `dompetctl import <file>

  Replaces the balance and all transactions. A malformed file is rejected
  and nothing is changed.
`
}

func (*importCmd) SetFlags(*flag.FlagSet) {}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return c.app.usage(f, "import takes exactly one file")
	}
	file, err := os.Open(f.Arg(0))
	if err != nil {
		return c.app.fail(err)
	}
	defer file.Close()

	snap, err := core.DecodeSnapshot(file)
	if err != nil {
		return c.app.fail(err)
	}
	return c.app.run(ctx, func(l *Ledger) error {
		if err := l.ImportSnapshot(ctx, snap); err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Imported %d transactions\nBalance: %s\n", len(snap.Transactions), snap.Balance)
		return nil
	})
}

type clearCmd struct {
	app     *App
	confirm bool
}

func (*clearCmd) Name() string { return "clear" }
func (*clearCmd) Synopsis() string { return "delete every transaction and reset the balance" }
func (*clearCmd) Usage() string {
	return `dompetctl clear -confirm
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.confirm, "confirm", false, "confirm that all data should be deleted")
}

func (c *clearCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.confirm {
		return c.app.fail(errConfirmationRequired)
	}
	return c.app.run(ctx, func(l *Ledger) error {
		if err := l.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.app.Out, "All data cleared")
		return nil
	})
}

type pruneCmd struct {
	app    *App
	before string
}

func (*pruneCmd) Name() string { return "prune" }
func (*pruneCmd) Synopsis() string { return "drop transactions dated before a cutoff" }
func (*pruneCmd) Usage() string {
	return `dompetctl prune [-before YYYY-MM-DD]

  Removes transactions dated strictly before the cutoff, one year before
  today by default. The balance is not changed.
`
}

func (c *pruneCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.before, "before", "", "cutoff date (default: one year ago)")
}

func (c *pruneCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var cutoff core.Date
	if c.before != "" {
		parsed, err := core.ParseDate(c.before)
		if err != nil {
			return c.app.fail(&core.ValidationError{Field: "before", Err: err})
		}
		cutoff = parsed
	}
	return c.app.run(ctx, func(l *Ledger) error {
		if cutoff.IsZero() {
			cutoff = ledger.RetentionCutoff(c.app.now(), l.Location())
		}
		removed, err := l.PruneOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Out, "Removed %d transactions dated before %s\n", removed, cutoff)
		return nil
	})
}
