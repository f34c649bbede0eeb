package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"dompet/internal/core"
	"dompet/internal/events"
)

// LedgerEventMessage is the wire form of an events.Event. Money travels as a
// decimal string so consumers never see float rounding.
type LedgerEventMessage struct {
	ID          string            `json:"id"`
	Kind        events.Kind       `json:"kind"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Balance     string            `json:"balance,omitempty"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Count       int               `json:"count,omitempty"`
	Key         string            `json:"key,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewLedgerEventMessage wraps e with a fresh message id.
func NewLedgerEventMessage(e events.Event) *LedgerEventMessage {
	msg := &LedgerEventMessage{
		ID:          uuid.NewString(),
		Kind:        e.Kind,
		OccurredAt:  e.At,
		Transaction: e.Transaction,
		Count:       e.Count,
		Key:         e.Key,
		Timestamp:   time.Now(),
	}
	if e.Balance != nil {
		msg.Balance = e.Balance.Plain()
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON parses a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
