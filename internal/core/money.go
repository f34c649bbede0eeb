// Package core provides money parsing and handling utilities.
//
// Amounts are kept as exact decimals with at most two fractional digits.
// Formatting for display goes through the currency tables of go-money.
package core

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency used for display formatting.
const DefaultCurrency = money.IDR

// Money is a signed decimal amount of the ledger currency.
type Money struct {
	value decimal.Decimal
}

// M builds a Money from any integer or float value, rounded to two decimals.
func M[T float64 | int | int64](v T) Money {
	switch x := any(v).(type) {
	case float64:
		return Money{value: decimal.NewFromFloat(x).Round(2)}
	case int:
		return Money{value: decimal.NewFromInt(int64(x))}
	default:
		return Money{value: decimal.NewFromInt(any(v).(int64))}
	}
}

// FromDecimal wraps d, rounded to two decimals.
func FromDecimal(d decimal.Decimal) Money {
	return Money{value: d.Round(2)}
}

// ParseAmount converts a user supplied decimal string to a positive Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. Signs, thousands separators and
// zero amounts are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("50000")  -> 50000
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m := FromDecimal(d)
	if !m.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// ParseBalance parses a persisted balance string. Unlike ParseAmount it
// accepts signs and zero.
func ParseBalance(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidBalance
	}
	return Money{value: d}, nil
}

func (m Money) Decimal() decimal.Decimal { return m.value }

func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value)} }
func (m Money) Neg() Money { return Money{value: m.value.Neg()} }

func (m Money) IsZero() bool { return m.value.IsZero() }
func (m Money) IsPositive() bool { return m.value.IsPositive() }
func (m Money) IsNegative() bool { return m.value.IsNegative() }
func (m Money) Equal(n Money) bool { return m.value.Equal(n.value) }
func (m Money) GreaterThan(n Money) bool { return m.value.GreaterThan(n.value) }
func (m Money) LessThan(n Money) bool { return m.value.LessThan(n.value) }
func (m Money) Cmp(n Money) int { return m.value.Cmp(n.value) }
func (m Money) Float64() float64 { return m.value.InexactFloat64() }
func (m Money) Validate() error { return validatePositive(m) }
func (m Money) Round() Money { return Money{value: m.value.Round(2)} }
func (m Money) Percent(of Money) decimal.Decimal {
	if of.IsZero() {
		return decimal.Zero
	}
	return m.value.Div(of.value).Mul(decimal.NewFromInt(100)).Round(1)
}

func validatePositive(m Money) error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Plain returns the canonical decimal string, the persisted form of a balance.
func (m Money) Plain() string {
	return m.value.String()
}

// String formats the amount for display in the default currency (e.g. "Rp1.234,50").
func (m Money) String() string {
	return m.Format(DefaultCurrency)
}

// Format formats the amount using the display rules of the given ISO currency.
func (m Money) Format(code string) string {
	cur := *money.New(0, code).Currency()
	minor := m.value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// MarshalJSON writes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.value.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return ErrInvalidAmount
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	m.value = d
	return nil
}
