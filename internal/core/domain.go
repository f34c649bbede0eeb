package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is one recorded income or expense event. It is never
	// edited after creation, only deleted.
	Transaction struct {
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
		Time        string          `json:"time"`      // HH:MM, local
		Timestamp   int64           `json:"timestamp"` // epoch millis, unique id
	}

	// Snapshot is a read-only copy of the ledger state.
	Snapshot struct {
		Balance      Money         `json:"balance"`
		Transactions []Transaction `json:"transactions"`
	}
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidClock = errors.New("invalid time of day")
)

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	switch t {
	case Expense, Income:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType accepts "expense" or "income" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	return t, nil
}

// NewDate creates a new Date from year, month (1-12) and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ClockOf formats the hour and minute of t as seen in loc.
func ClockOf(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(clockLayout)
}

// ValidClock reports whether s is a well-formed HH:MM time of day.
func ValidClock(s string) bool {
	_, err := time.Parse(clockLayout, s)
	return err == nil
}

// String returns the ISO YYYY-MM-DD form, which sorts like the calendar.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.String() < other.String()
}

// InMonth reports whether d falls in the given 0-based month of year.
func (d Date) InMonth(month, year int) bool {
	return d.Year() == year && int(d.Month())-1 == month
}

// AddYears returns d shifted by n years.
func (d Date) AddYears(n int) Date {
	return Date{Time: d.AddDate(n, 0, 0)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsExpense is shorthand for t.Type == Expense.
func (t Transaction) IsExpense() bool {
	return t.Type == Expense
}

// Effect returns the signed change the transaction applies to the balance.
func (t Transaction) Effect() Money {
	if t.IsExpense() {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Balance: s.Balance}
	out.Transactions = append(make([]Transaction, 0, len(s.Transactions)), s.Transactions...)
	return out
}

// Find returns the index of the transaction with the given timestamp, or -1.
func (s Snapshot) Find(timestamp int64) int {
	for i, t := range s.Transactions {
		if t.Timestamp == timestamp {
			return i
		}
	}
	return -1
}

// MaxTimestamp returns the largest timestamp in the snapshot, 0 when empty.
func (s Snapshot) MaxTimestamp() int64 {
	var max int64
	for _, t := range s.Transactions {
		if t.Timestamp > max {
			max = t.Timestamp
		}
	}
	return max
}
