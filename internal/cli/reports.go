package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"dompet/internal/core"
	"dompet/internal/report"
)

type reportCmd struct {
	app    *App
	months monthFlags
	asJSON bool
}

func (*reportCmd) Name() string { return "report" }
func (*reportCmd) Synopsis() string { return "summarize one month" }
func (*reportCmd) Usage() string {
	return `dompetctl report [-month 1-12] [-year YYYY] [-json]

  Prints income, expense, net, the expense categories, and the balance at
  the end of the month.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.months.set(f)
	f.BoolVar(&c.asJSON, "json", false, "print the report as JSON")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(l *Ledger) error {
		month, year, err := c.months.resolve(c.app.now(), l.Location())
		if err != nil {
			return err
		}
		snap, err := l.ExportSnapshot(ctx)
		if err != nil {
			return err
		}
		r := report.BuildMonthReport(snap, month, year)
		if c.asJSON {
			enc := json.NewEncoder(c.app.Out)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}
		return writeMonthReport(c.app, r)
	})
}

func writeMonthReport(app *App, r report.MonthReport) error {
	w := app.table()
	fmt.Fprintf(w, "%s %d\n\n", r.Label, r.Year)
	fmt.Fprintf(w, "Income\t%s\n", r.Income)
	fmt.Fprintf(w, "Expense\t%s\n", r.Expense)
	fmt.Fprintf(w, "Net\t%s\n", r.Net)
	fmt.Fprintf(w, "Change\t%.1f%%\n", r.PercentageChange)
	fmt.Fprintf(w, "Running balance\t%s\n", r.RunningBalance)
	fmt.Fprintf(w, "Total balance\t%s\n", r.TotalBalance)
	if len(r.Categories) > 0 {
		fmt.Fprintln(w, "\nCATEGORY\tAMOUNT\tSHARE")
		for _, cat := range r.Categories {
			fmt.Fprintf(w, "%s\t%s\t%.1f%%\n", cat.Name, cat.Amount, cat.Percent)
		}
	}
	return w.Flush()
}

type monthlyCmd struct {
	app    *App
	months int
}

func (*monthlyCmd) Name() string { return "monthly" }
func (*monthlyCmd) Synopsis() string { return "income and expense of the last months" }
func (*monthlyCmd) Usage() string {
	return `dompetctl monthly [-months 6]

  Lists the most recent months that have transactions, newest first.
`
}

func (c *monthlyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.months, "months", report.DefaultMonths, "number of months")
}

func (c *monthlyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.months <= 0 {
		return c.app.usage(f, "-months must be positive")
	}
	return c.app.run(ctx, func(l *Ledger) error {
		snap, err := l.ExportSnapshot(ctx)
		if err != nil {
			return err
		}
		w := c.app.table()
		fmt.Fprintln(w, "MONTH\tINCOME\tEXPENSE\tNET")
		for _, b := range report.MonthlySeries(snap, c.months) {
			fmt.Fprintf(w, "%s %d\t%s\t%s\t%s\n",
				core.MonthName(b.Month), b.Year, b.Income.Plain(), b.Expense.Plain(), b.Net().Plain())
		}
		return w.Flush()
	})
}
