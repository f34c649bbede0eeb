package amqp

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"dompet/internal/core"
	"dompet/internal/events"
	"dompet/internal/log"
)

func TestPublishConsumeRoundTrip(t *testing.T) {
	url := os.Getenv("AMQP_TEST_URL")
	if url == "" {
		t.Skip("AMQP_TEST_URL not set")
	}

	queue := "dompet_test_" + uuid.NewString()
	client, err := NewClient(url, "dompet_test", queue, log.Discard())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	balance := core.M(12500)
	if err := client.Publish(ctx, events.Event{Kind: events.BalanceSet, At: time.Now(), Balance: &balance}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := make(chan *LedgerEventMessage, 1)
	go client.ConsumeLedgerEvents(ctx, func(_ context.Context, msg *LedgerEventMessage) error {
		got <- msg
		cancel()
		return nil
	})

	select {
	case msg := <-got:
		if msg.Kind != events.BalanceSet || msg.Balance != "12500" {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no message consumed")
	}
}
