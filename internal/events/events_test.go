package events

import (
	"context"
	"errors"
	"testing"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus()
	a, cancelA := bus.Subscribe(4)
	b, cancelB := bus.Subscribe(4)
	defer cancelA()
	defer cancelB()

	if err := bus.Publish(context.Background(), Event{Kind: BalanceSet}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for i, ch := range []<-chan Event{a, b} {
		e := <-ch
		if e.Kind != BalanceSet || e.At.IsZero() {
			t.Fatalf("subscriber %d got %+v", i, e)
		}
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	ctx := context.Background()
	_ = bus.Publish(ctx, Event{Kind: TransactionAdded})
	_ = bus.Publish(ctx, Event{Kind: TransactionDeleted})

	if e := <-ch; e.Kind != TransactionAdded {
		t.Fatalf("expected first event kept, got %s", e.Kind)
	}
	if bus.Dropped() != 1 {
		t.Fatalf("expected 1 dropped event, got %d", bus.Dropped())
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", bus.Subscribers())
	}
	if err := bus.Publish(context.Background(), Event{Kind: LedgerCleared}); err != nil {
		t.Fatalf("publish after cancel: %v", err)
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	errA := errors.New("broker down")
	var delivered int
	f := Fanout{
		PublisherFunc(func(context.Context, Event) error { delivered++; return nil }),
		nil,
		PublisherFunc(func(context.Context, Event) error { delivered++; return errA }),
	}
	err := f.Publish(context.Background(), Event{Kind: LedgerImported})
	if !errors.Is(err, errA) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if delivered != 2 {
		t.Fatalf("expected every publisher called, got %d", delivered)
	}
}

func TestKindLedgerChange(t *testing.T) {
	if SettingsChanged.LedgerChange() {
		t.Fatalf("settings change is not a ledger change")
	}
	if !TransactionsPruned.LedgerChange() {
		t.Fatalf("prune is a ledger change")
	}
}

func TestKindKnown(t *testing.T) {
	for _, k := range []Kind{TransactionAdded, TransactionDeleted, BalanceSet, LedgerCleared, LedgerImported, TransactionsPruned, SettingsChanged} {
		if !k.Known() {
			t.Errorf("%s should be known", k)
		}
	}
	if Kind("ledger.exploded").Known() || Kind("").Known() {
		t.Fatalf("unexpected known kind")
	}
}
