package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// rawTransaction mirrors Transaction with every field optional so that
// missing fields can be told apart from zero values.
type rawTransaction struct {
	Type        *string          `json:"type"`
	Amount      *json.RawMessage `json:"amount"`
	Description *string          `json:"description"`
	Date        *string          `json:"date"`
	Time        *string          `json:"time"`
	Timestamp   *json.Number     `json:"timestamp"`
}

type rawSnapshot struct {
	Balance      *json.RawMessage  `json:"balance"`
	Transactions *[]json.RawMessage `json:"transactions"`
}

// DecodeSnapshot parses the import/export file format. Any structural problem
// is reported as an *ImportFormatError and nothing is returned.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var raw rawSnapshot
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Snapshot{}, &ImportFormatError{Index: -1, Field: "document", Err: err}
	}
	if raw.Balance == nil {
		return Snapshot{}, &ImportFormatError{Index: -1, Field: "balance", Err: ErrMissingField}
	}
	if raw.Transactions == nil {
		return Snapshot{}, &ImportFormatError{Index: -1, Field: "transactions", Err: ErrMissingField}
	}

	var snap Snapshot
	if err := decodeNumber(*raw.Balance, &snap.Balance); err != nil {
		return Snapshot{}, &ImportFormatError{Index: -1, Field: "balance", Err: err}
	}

	snap.Transactions = make([]Transaction, 0, len(*raw.Transactions))
	for i, item := range *raw.Transactions {
		t, err := decodeTransaction(i, item)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Transactions = append(snap.Transactions, t)
	}
	if err := snap.ValidateShape(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// DecodeTransactions parses the persisted JSON array of transactions.
func DecodeTransactions(data string) ([]Transaction, error) {
	if data == "" {
		return []Transaction{}, nil
	}
	var out []Transaction
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	if out == nil {
		out = []Transaction{}
	}
	return out, nil
}

// EncodeTransactions renders transactions in the persisted JSON array form.
func EncodeTransactions(txs []Transaction) (string, error) {
	if txs == nil {
		txs = []Transaction{}
	}
	b, err := json.Marshal(txs)
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}
	return string(b), nil
}

// EncodeSnapshot writes snap in the import/export file format.
func EncodeSnapshot(w io.Writer, snap Snapshot) error {
	if snap.Transactions == nil {
		snap.Transactions = []Transaction{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// ExportFileName is the default name of an export file written at now.
func ExportFileName(now time.Time) string {
	return "expense-tracker-data-" + now.Format(dateLayout) + ".json"
}

// ValidateShape checks the structural rules an imported snapshot must meet:
// known type, parseable date and time, non-zero and unique timestamps.
func (s Snapshot) ValidateShape() error {
	seen := make(map[int64]struct{}, len(s.Transactions))
	for i, t := range s.Transactions {
		if !t.Type.IsValid() {
			return &ImportFormatError{Index: i, Field: "type", Err: ErrInvalidType}
		}
		if t.Date.IsZero() {
			return &ImportFormatError{Index: i, Field: "date", Err: ErrInvalidDate}
		}
		if !ValidClock(t.Time) {
			return &ImportFormatError{Index: i, Field: "time", Err: ErrInvalidClock}
		}
		if t.Timestamp <= 0 {
			return &ImportFormatError{Index: i, Field: "timestamp", Err: ErrMissingField}
		}
		if _, dup := seen[t.Timestamp]; dup {
			return &ImportFormatError{Index: i, Field: "timestamp", Err: ErrDuplicateTimestamp}
		}
		seen[t.Timestamp] = struct{}{}
	}
	return nil
}

func decodeTransaction(i int, item json.RawMessage) (Transaction, error) {
	var raw rawTransaction
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Transaction{}, &ImportFormatError{Index: i, Field: "record", Err: err}
	}

	missing := func(field string) error {
		return &ImportFormatError{Index: i, Field: field, Err: ErrMissingField}
	}
	switch {
	case raw.Type == nil:
		return Transaction{}, missing("type")
	case raw.Amount == nil:
		return Transaction{}, missing("amount")
	case raw.Description == nil:
		return Transaction{}, missing("description")
	case raw.Date == nil:
		return Transaction{}, missing("date")
	case raw.Time == nil:
		return Transaction{}, missing("time")
	case raw.Timestamp == nil:
		return Transaction{}, missing("timestamp")
	}

	t := Transaction{
		Type:        TransactionType(*raw.Type),
		Description: *raw.Description,
		Time:        *raw.Time,
	}
	if err := decodeNumber(*raw.Amount, &t.Amount); err != nil {
		return Transaction{}, &ImportFormatError{Index: i, Field: "amount", Err: err}
	}
	date, err := ParseDate(*raw.Date)
	if err != nil {
		return Transaction{}, &ImportFormatError{Index: i, Field: "date", Err: err}
	}
	t.Date = date
	ts, err := raw.Timestamp.Int64()
	if err != nil {
		return Transaction{}, &ImportFormatError{Index: i, Field: "timestamp", Err: err}
	}
	t.Timestamp = ts
	return t, nil
}

// decodeNumber only accepts a bare JSON number.
func decodeNumber(data json.RawMessage, m *Money) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return errors.New("expected a number")
	}
	return m.UnmarshalJSON(trimmed)
}
