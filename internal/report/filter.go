package report

import (
	"slices"
	"strings"

	"dompet/internal/core"
)

// Query selects transactions for the transaction list view. A zero Type
// matches both types; Search matches descriptions case-insensitively.
type Query struct {
	Month  int
	Year   int
	Type   core.TransactionType
	Search string
}

// Filter applies q and orders the result by date and time, newest first.
func Filter(snap core.Snapshot, q Query) []core.Transaction {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := []core.Transaction{}
	for _, t := range InMonth(snap, q.Month, q.Year) {
		if q.Type != "" && t.Type != q.Type {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return strings.Compare(b.Date.String()+"T"+b.Time, a.Date.String()+"T"+a.Time)
	})
	return out
}

// MonthReport is everything the monthly report view shows for one month.
type MonthReport struct {
	Month            int                   `json:"month"`
	Year             int                   `json:"year"`
	Label            string                `json:"label"`
	Income           core.Money            `json:"income"`
	Expense          core.Money            `json:"expense"`
	Net              core.Money            `json:"net"`
	PercentageChange float64               `json:"percentage_change"`
	Categories       []core.CategoryAmount `json:"categories"`
	Daily            []core.DailyPoint     `json:"daily"`
	RunningBalance   core.Money            `json:"running_balance"`
	TotalBalance     core.Money            `json:"total_balance"`
	Transactions     []core.Transaction    `json:"transactions"`
}

// BuildMonthReport assembles the report of a 0-based month.
func BuildMonthReport(snap core.Snapshot, month, year int) MonthReport {
	totals := MonthSummary(snap, month, year)
	return MonthReport{
		Month:            month,
		Year:             year,
		Label:            core.MonthName(month),
		Income:           totals.Income,
		Expense:          totals.Expense,
		Net:              totals.Net(),
		PercentageChange: PercentageChange(totals.Income, totals.Expense),
		Categories:       CategoryShares(CategoryBreakdown(snap, month, year)),
		Daily:            DailyExpenseSeries(snap, month, year),
		RunningBalance:   RunningBalanceAsOf(snap, month, year, snap.Balance),
		TotalBalance:     snap.Balance,
		Transactions:     Filter(snap, Query{Month: month, Year: year}),
	}
}
