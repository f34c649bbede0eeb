package report

import (
	"slices"
	"strings"

	"dompet/internal/core"
)

// buckets groups every transaction by month, newest month first.
func buckets(snap core.Snapshot) []core.MonthBucket {
	byKey := make(map[core.MonthKey]*core.MonthBucket)
	for _, t := range snap.Transactions {
		key := core.KeyOf(t.Date)
		b, ok := byKey[key]
		if !ok {
			b = &core.MonthBucket{MonthKey: key, Label: core.MonthName(key.Month)}
			byKey[key] = b
		}
		if t.IsExpense() {
			b.Expense = b.Expense.Add(t.Amount)
		} else {
			b.Income = b.Income.Add(t.Amount)
		}
	}

	out := make([]core.MonthBucket, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b core.MonthBucket) int {
		switch {
		case a.After(b.MonthKey):
			return -1
		case b.After(a.MonthKey):
			return 1
		default:
			return 0
		}
	})
	return out
}

// MonthlySeries returns the lastN most recent months that have at least one
// transaction, newest first.
func MonthlySeries(snap core.Snapshot, lastN int) []core.MonthBucket {
	if lastN <= 0 {
		lastN = DefaultMonths
	}
	all := buckets(snap)
	if len(all) > lastN {
		all = all[:lastN]
	}
	return all
}

// RunningBalanceAsOf reconstructs the balance at the end of a 0-based month
// by taking the net of every later month off totalBalance. It only holds
// while totalBalance is fully explained by the recorded transactions.
func RunningBalanceAsOf(snap core.Snapshot, month, year int, totalBalance core.Money) core.Money {
	target := core.MonthKey{Year: year, Month: month}
	running := totalBalance
	for _, b := range buckets(snap) {
		if !b.After(target) {
			break
		}
		running = running.Sub(b.Net())
	}
	return running
}

// DailyExpenseSeries sums the month's expenses per date, oldest date first.
func DailyExpenseSeries(snap core.Snapshot, month, year int) []core.DailyPoint {
	byDate := make(map[string]*core.DailyPoint)
	for _, t := range InMonth(snap, month, year) {
		if !t.IsExpense() {
			continue
		}
		key := t.Date.String()
		p, ok := byDate[key]
		if !ok {
			p = &core.DailyPoint{Date: t.Date}
			byDate[key] = p
		}
		p.Amount = p.Amount.Add(t.Amount)
	}

	out := make([]core.DailyPoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b core.DailyPoint) int {
		return strings.Compare(a.Date.String(), b.Date.String())
	})
	return out
}
