// Package report derives read-only views from a ledger snapshot. Nothing here
// mutates the snapshot it is given, and the same input always yields the
// same output.
package report

import (
	"cmp"
	"slices"
	"strings"

	"dompet/internal/core"
)

const (
	DefaultRecent = 5
	DefaultMonths = 6

	// OtherCategory collects expenses whose description matches no keyword.
	OtherCategory = "Other"
)

// categoryKeywords is scanned in order; the first keyword contained in a
// description decides its category.
var categoryKeywords = []string{
	"bensin", "parkir", "makanan", "makan", "belanja", "transportasi",
	"pulsa", "internet", "listrik", "air", "sewa", "tagihan", "obat",
	"kesehatan", "pendidikan", "hiburan", "pakaian", "donasi", "jajan", "angkot",
}

// Keywords returns a copy of the category keyword list in match order.
func Keywords() []string {
	return slices.Clone(categoryKeywords)
}

// Categorize returns the display category of an expense description.
func Categorize(description string) string {
	lower := strings.ToLower(description)
	for _, kw := range categoryKeywords {
		if strings.Contains(lower, kw) {
			return strings.ToUpper(kw[:1]) + kw[1:]
		}
	}
	return OtherCategory
}

// RecentTransactions returns at most n transactions, newest first. Entries
// are ordered by timestamp when both carry one and by date otherwise.
func RecentTransactions(snap core.Snapshot, n int) []core.Transaction {
	if n <= 0 {
		n = DefaultRecent
	}
	out := slices.Clone(snap.Transactions)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		if a.Timestamp != 0 && b.Timestamp != 0 {
			return cmp.Compare(b.Timestamp, a.Timestamp)
		}
		return strings.Compare(b.Date.String(), a.Date.String())
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// InMonth returns the transactions dated in the given 0-based month.
func InMonth(snap core.Snapshot, month, year int) []core.Transaction {
	var out []core.Transaction
	for _, t := range snap.Transactions {
		if t.Date.InMonth(month, year) {
			out = append(out, t)
		}
	}
	return out
}

// MonthSummary sums income and expense of a 0-based month.
func MonthSummary(snap core.Snapshot, month, year int) core.MonthTotals {
	var totals core.MonthTotals
	for _, t := range InMonth(snap, month, year) {
		if t.IsExpense() {
			totals.Expense = totals.Expense.Add(t.Amount)
		} else {
			totals.Income = totals.Income.Add(t.Amount)
		}
	}
	return totals
}

// PercentageChange is the share of income left after expenses, in percent
// with one decimal. It is 0 whenever income is 0.
func PercentageChange(income, expense core.Money) float64 {
	if income.IsZero() {
		return 0
	}
	return income.Sub(expense).Percent(income).InexactFloat64()
}

// CategoryBreakdown sums the month's expenses per keyword category.
func CategoryBreakdown(snap core.Snapshot, month, year int) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, t := range InMonth(snap, month, year) {
		if !t.IsExpense() {
			continue
		}
		cat := Categorize(t.Description)
		out[cat] = out[cat].Add(t.Amount)
	}
	return out
}

// CategoryShares orders a breakdown by amount, largest first, and attaches
// each category's share of the total. Equal amounts sort by name.
func CategoryShares(breakdown map[string]core.Money) []core.CategoryAmount {
	total := core.Money{}
	for _, amount := range breakdown {
		total = total.Add(amount)
	}
	out := make([]core.CategoryAmount, 0, len(breakdown))
	for name, amount := range breakdown {
		out = append(out, core.CategoryAmount{
			Name:    name,
			Amount:  amount,
			Percent: amount.Percent(total).InexactFloat64(),
		})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
