// Package events carries ledger and settings change notifications between
// the parts of a running process.
package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dompet/internal/core"
)

type Kind string

const (
	TransactionAdded   Kind = "transaction.added"
	TransactionDeleted Kind = "transaction.deleted"
	BalanceSet         Kind = "balance.set"
	LedgerCleared      Kind = "ledger.cleared"
	LedgerImported     Kind = "ledger.imported"
	TransactionsPruned Kind = "transactions.pruned"
	SettingsChanged    Kind = "settings.changed"
)

// Known reports whether k is one of the kinds defined above.
func (k Kind) Known() bool {
	switch k {
	case TransactionAdded, TransactionDeleted, BalanceSet, LedgerCleared,
		LedgerImported, TransactionsPruned, SettingsChanged:
		return true
	}
	return false
}

// LedgerChange reports whether events of kind k alter balance or transactions.
func (k Kind) LedgerChange() bool {
	return k != SettingsChanged && k != ""
}

// Event describes one committed change. Only the fields relevant to Kind are set.
type Event struct {
	Kind        Kind              `json:"kind"`
	At          time.Time         `json:"at"`
	Balance     *core.Money       `json:"balance,omitempty"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Count       int               `json:"count,omitempty"`
	Key         string            `json:"key,omitempty"`
}

// Publisher delivers events somewhere. Publish must not block for long.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Fanout publishes to every non-nil publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Bus is an in-process broadcaster. Slow subscribers lose events rather than
// stall the publisher.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	dropped atomic.Int64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Bus) Publish(_ context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
