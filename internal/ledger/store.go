// Package ledger owns the balance and the transaction list. Every mutation
// goes through Store, which keeps the two consistent and persists them as a
// single write through the injected kv port.
package ledger

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/events"
	"dompet/internal/kv"
	"dompet/internal/log"
)

// RetentionPeriod is how far back transactions are kept by the retention prune.
const RetentionPeriod = 1 // years

type Option func(*Store)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the time zone used to derive transaction dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.pub = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentLedger)
		}
	}
}

// Store is the single writer of the ledger. State is re-read from the kv
// store on every call, so nothing in memory can run ahead of what was
// persisted. Each read-modify-write runs inside one kv Update, which keeps it
// atomic against other processes sharing the backend.
type Store struct {
	kv     kv.Store
	now    func() time.Time
	loc    *time.Location
	pub    events.Publisher
	logger *log.Logger
}

func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		now:    time.Now,
		loc:    time.Local,
		logger: log.Default(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the time zone transaction dates are derived in.
func (s *Store) Location() *time.Location { return s.loc }

// Init writes the default empty ledger for any key that is missing.
func (s *Store) Init(ctx context.Context) error {
	var written int
	err := s.kv.Update(ctx, func(get kv.GetFunc) (map[string]string, error) {
		defaults := map[string]string{}
		for key, value := range map[string]string{kv.KeyBalance: "0", kv.KeyTransactions: "[]"} {
			_, ok, err := get(key)
			if err != nil {
				return nil, &core.PersistenceError{Op: "read " + key, Err: err}
			}
			if !ok {
				defaults[key] = value
			}
		}
		written = len(defaults)
		return defaults, nil
	})
	if err != nil {
		if core.IsPersistence(err) {
			return err
		}
		return &core.PersistenceError{Op: "init", Err: err}
	}
	if written > 0 {
		s.logger.InfoContext(ctx, "Initialized empty ledger keys", log.FieldCount, written)
	}
	return nil
}

// AddTransaction records a new income or expense. occurredAt supplies the
// date and time of day; the zero time means now.
func (s *Store) AddTransaction(ctx context.Context, typ core.TransactionType, amount core.Money, description string, occurredAt time.Time) (core.Transaction, error) {
	if !typ.IsValid() {
		return core.Transaction{}, &core.ValidationError{Field: "type", Err: core.ErrInvalidType}
	}
	amount = amount.Round()
	if err := amount.Validate(); err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: err}
	}
	if strings.TrimSpace(description) == "" {
		return core.Transaction{}, &core.ValidationError{Field: "description", Err: core.ErrEmptyDescription}
	}

	var (
		t       core.Transaction
		balance core.Money
	)
	err := s.mutate(ctx, func(snap *core.Snapshot) (bool, error) {
		if typ == core.Expense && amount.GreaterThan(snap.Balance) {
			return false, &core.ValidationError{Field: "amount", Err: core.ErrInsufficientBalance}
		}

		now := s.now()
		at := occurredAt
		if at.IsZero() {
			at = now
		}
		stamp := now.UnixMilli()
		if last := snap.MaxTimestamp(); stamp <= last {
			stamp = last + 1
		}

		t = core.Transaction{
			Type:        typ,
			Amount:      amount,
			Description: description,
			Date:        core.DateOf(at, s.loc),
			Time:        core.ClockOf(at, s.loc),
			Timestamp:   stamp,
		}
		snap.Balance = snap.Balance.Add(t.Effect())
		snap.Transactions = append(snap.Transactions, t)
		balance = snap.Balance
		return true, nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction added", log.NewFields().
		WithTransaction(t.Type.String(), t.Description, t.Amount.Plain(), t.Timestamp).
		WithBalance(balance.Plain()).ToSlice()...)
	s.publish(ctx, events.Event{Kind: events.TransactionAdded, Transaction: &t, Balance: &balance})
	return t, nil
}

// DeleteTransaction removes a transaction and reverses its effect on the balance.
func (s *Store) DeleteTransaction(ctx context.Context, timestamp int64) error {
	var (
		t       core.Transaction
		balance core.Money
	)
	err := s.mutate(ctx, func(snap *core.Snapshot) (bool, error) {
		i := snap.Find(timestamp)
		if i < 0 {
			return false, &core.NotFoundError{Timestamp: timestamp}
		}
		t = snap.Transactions[i]
		snap.Balance = snap.Balance.Sub(t.Effect())
		snap.Transactions = slices.Delete(snap.Transactions, i, i+1)
		balance = snap.Balance
		return true, nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldTimestamp, timestamp,
		log.FieldBalance, balance.Plain())
	s.publish(ctx, events.Event{Kind: events.TransactionDeleted, Transaction: &t, Balance: &balance})
	return nil
}

// SetBalance overwrites the balance without touching the transactions.
// Running balances reconstructed from history no longer add up afterwards.
func (s *Store) SetBalance(ctx context.Context, balance core.Money) error {
	balance = balance.Round()
	if balance.IsNegative() {
		return &core.ValidationError{Field: "balance", Err: core.ErrInvalidBalance}
	}

	if err := s.kv.Set(ctx, kv.KeyBalance, balance.Plain()); err != nil {
		return &core.PersistenceError{Op: "write balance", Err: err}
	}

	s.logger.InfoContext(ctx, "Balance set", log.FieldBalance, balance.Plain())
	s.publish(ctx, events.Event{Kind: events.BalanceSet, Balance: &balance})
	return nil
}

// ClearAll resets the ledger to a zero balance and no transactions.
func (s *Store) ClearAll(ctx context.Context) error {
	empty := core.Snapshot{Transactions: []core.Transaction{}}
	if err := s.save(ctx, empty); err != nil {
		return err
	}

	s.logger.WarnContext(ctx, "Ledger cleared")
	s.publish(ctx, events.Event{Kind: events.LedgerCleared, Balance: &empty.Balance})
	return nil
}

// PruneOlderThan drops transactions dated strictly before cutoff and
// returns how many were removed. The balance is left as it is.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff core.Date) (int, error) {
	var removed int
	err := s.mutate(ctx, func(snap *core.Snapshot) (bool, error) {
		before := len(snap.Transactions)
		snap.Transactions = slices.DeleteFunc(snap.Transactions, func(t core.Transaction) bool {
			return t.Date.Before(cutoff)
		})
		removed = before - len(snap.Transactions)
		return removed > 0, nil
	})
	if err != nil || removed == 0 {
		return 0, err
	}

	s.logger.InfoContext(ctx, "Pruned old transactions",
		log.FieldCount, removed,
		log.FieldCutoff, cutoff.String())
	s.publish(ctx, events.Event{Kind: events.TransactionsPruned, Count: removed})
	return removed, nil
}

// PruneExpired prunes everything older than RetentionPeriod before today.
func (s *Store) PruneExpired(ctx context.Context) (int, error) {
	return s.PruneOlderThan(ctx, RetentionCutoff(s.now(), s.loc))
}

// RetentionCutoff is the first date kept by the retention prune at now.
func RetentionCutoff(now time.Time, loc *time.Location) core.Date {
	return core.DateOf(now, loc).AddYears(-RetentionPeriod)
}

// ImportSnapshot replaces the whole ledger. The snapshot is checked for
// shape only; a malformed one is rejected without writing anything.
func (s *Store) ImportSnapshot(ctx context.Context, snap core.Snapshot) error {
	if err := snap.ValidateShape(); err != nil {
		return err
	}
	snap = snap.Clone()

	if err := s.save(ctx, snap); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Ledger imported",
		log.FieldCount, len(snap.Transactions),
		log.FieldBalance, snap.Balance.Plain())
	s.publish(ctx, events.Event{Kind: events.LedgerImported, Balance: &snap.Balance, Count: len(snap.Transactions)})
	return nil
}

// ExportSnapshot returns a copy of the current ledger. Both keys are read in
// one update so the balance always matches the transactions.
func (s *Store) ExportSnapshot(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	err := s.mutate(ctx, func(current *core.Snapshot) (bool, error) {
		snap = current.Clone()
		return false, nil
	})
	if err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) Balance(ctx context.Context) (core.Money, error) {
	raw, _, err := s.kv.Get(ctx, kv.KeyBalance)
	if err != nil {
		return core.Money{}, &core.PersistenceError{Op: "read balance", Err: err}
	}
	return decodeBalance(raw)
}

func decodeBalance(raw string) (core.Money, error) {
	balance, err := core.ParseBalance(raw)
	if err != nil {
		return core.Money{}, &core.PersistenceError{Op: "decode balance", Err: err}
	}
	return balance, nil
}

func load(get kv.GetFunc) (core.Snapshot, error) {
	raw, _, err := get(kv.KeyBalance)
	if err != nil {
		return core.Snapshot{}, &core.PersistenceError{Op: "read balance", Err: err}
	}
	balance, err := decodeBalance(raw)
	if err != nil {
		return core.Snapshot{}, err
	}
	raw, _, err = get(kv.KeyTransactions)
	if err != nil {
		return core.Snapshot{}, &core.PersistenceError{Op: "read transactions", Err: err}
	}
	txs, err := core.DecodeTransactions(raw)
	if err != nil {
		return core.Snapshot{}, &core.PersistenceError{Op: "decode transactions", Err: err}
	}
	return core.Snapshot{Balance: balance, Transactions: txs}, nil
}

func encode(snap core.Snapshot) (map[string]string, error) {
	encoded, err := core.EncodeTransactions(snap.Transactions)
	if err != nil {
		return nil, &core.PersistenceError{Op: "encode transactions", Err: err}
	}
	return map[string]string{
		kv.KeyBalance:      snap.Balance.Plain(),
		kv.KeyTransactions: encoded,
	}, nil
}

// mutate loads the ledger, hands it to fn and writes it back when fn reports
// a change, all inside one kv Update. Errors from fn come back unchanged.
func (s *Store) mutate(ctx context.Context, fn func(snap *core.Snapshot) (bool, error)) error {
	var rejected error
	err := s.kv.Update(ctx, func(get kv.GetFunc) (map[string]string, error) {
		snap, err := load(get)
		if err != nil {
			return nil, err
		}
		changed, err := fn(&snap)
		if err != nil {
			rejected = err
			return nil, err
		}
		if !changed {
			return nil, nil
		}
		return encode(snap)
	})
	switch {
	case err == nil:
		return nil
	case rejected != nil:
		return rejected
	case core.IsPersistence(err):
		return err
	}
	s.logger.ErrorContext(ctx, "Failed to persist ledger", log.FieldError, err)
	return &core.PersistenceError{Op: "write ledger", Err: err}
}

// save overwrites both keys in one SetMany without reading them first.
func (s *Store) save(ctx context.Context, snap core.Snapshot) error {
	entries, err := encode(snap)
	if err != nil {
		return err
	}
	if err := s.kv.SetMany(ctx, entries); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger", log.FieldError, err)
		return &core.PersistenceError{Op: "write ledger", Err: err}
	}
	return nil
}

// publish runs after the write has committed and never fails the mutation
// that triggered it.
func (s *Store) publish(ctx context.Context, e events.Event) {
	if s.pub == nil {
		return
	}
	e.At = s.now()
	if err := s.pub.Publish(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventKind, string(e.Kind),
			log.FieldError, err)
	}
}
