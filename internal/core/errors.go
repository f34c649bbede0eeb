package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrInsufficientBalance = errors.New("expense exceeds current balance")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidBalance      = errors.New("invalid balance")
	ErrMissingField        = errors.New("missing field")
	ErrDuplicateTimestamp  = errors.New("duplicate timestamp")
)

// ValidationError reports invalid input to a mutating operation. State is
// left unchanged when it is returned.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a delete of a transaction that does not exist.
type NotFoundError struct {
	Timestamp int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %d not found", e.Timestamp)
}

// PersistenceError reports a failed read or write on the underlying store.
// The change it belongs to must be treated as not committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ImportFormatError reports a snapshot that does not have the expected shape.
// Index is the offending transaction position, or -1 for the envelope.
type ImportFormatError struct {
	Index int
	Field string
	Err   error
}

func (e *ImportFormatError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("import: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("import: transaction %d: %s: %v", e.Index, e.Field, e.Err)
}

func (e *ImportFormatError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsImportFormat reports whether err is (or wraps) an *ImportFormatError.
func IsImportFormat(err error) bool {
	var ie *ImportFormatError
	return errors.As(err, &ie)
}

// IsPersistence reports whether err is (or wraps) a *PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
