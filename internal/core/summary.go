package core

import "fmt"

// monthNames are the display labels of the calendar months, January first.
var monthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthName returns the display label of a 0-based month.
func MonthName(month int) string {
	if month < 0 || month > 11 {
		return fmt.Sprintf("month(%d)", month)
	}
	return monthNames[month]
}

// MonthTotals sums a month's amounts by transaction type.
type MonthTotals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// Net is income minus expense.
func (t MonthTotals) Net() Money {
	return t.Income.Sub(t.Expense)
}

// MonthKey identifies a calendar month. Month is 0-based.
type MonthKey struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// After reports whether k is chronologically later than other.
func (k MonthKey) After(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year > other.Year
	}
	return k.Month > other.Month
}

// KeyOf returns the month a date falls in.
func KeyOf(d Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: int(d.Month()) - 1}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month+1)
}

// MonthBucket is the per-month total used by the monthly series.
type MonthBucket struct {
	MonthKey
	Label   string `json:"label"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
}

// Net is income minus expense.
func (b MonthBucket) Net() Money {
	return b.Income.Sub(b.Expense)
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name    string  `json:"name"`
	Amount  Money   `json:"amount"`
	Percent float64 `json:"percent"`
}

// DailyPoint is the summed expense of one date.
type DailyPoint struct {
	Date   Date  `json:"date"`
	Amount Money `json:"amount"`
}
