// Package worker holds the consumers that run in dompet-worker.
package worker

import (
	"context"
	"maps"
	"sync"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/events"
	"dompet/internal/log"
)

// seenWindow bounds how many message ids are remembered for redelivery checks.
const seenWindow = 1024

// Stats summarizes what the audit worker has recorded since it started.
type Stats struct {
	Counts      map[events.Kind]int
	Duplicates  int
	Unknown     int
	LastBalance string
	LastEvent   time.Time
}

// AuditWorker writes every ledger event it receives to the audit log.
// Redelivered messages are recognized by id and logged once.
type AuditWorker struct {
	logger *log.Logger

	mu          sync.Mutex
	seen        map[string]struct{}
	order       []string
	counts      map[events.Kind]int
	duplicates  int
	unknown     int
	lastBalance string
	lastEvent   time.Time
}

func NewAuditWorker(logger *log.Logger) *AuditWorker {
	if logger == nil {
		logger = log.Default(log.ComponentAudit)
	}
	return &AuditWorker{
		logger: logger.WithComponent(log.ComponentAudit),
		seen:   make(map[string]struct{}, seenWindow),
		counts: make(map[events.Kind]int),
	}
}

// HandleLedgerEvent records one message. It never asks for a redelivery:
// unknown kinds are counted and acknowledged.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.mu.Lock()
	if _, dup := w.seen[msg.ID]; dup {
		w.duplicates++
		w.mu.Unlock()
		w.logger.DebugContext(ctx, "Skipping redelivered ledger event", "message_id", msg.ID)
		return nil
	}
	w.remember(msg.ID)
	if !msg.Kind.Known() {
		w.unknown++
		w.mu.Unlock()
		w.logger.WarnContext(ctx, "Unknown ledger event kind",
			"message_id", msg.ID,
			log.FieldEventKind, string(msg.Kind))
		return nil
	}
	w.counts[msg.Kind]++
	if msg.Balance != "" {
		w.lastBalance = msg.Balance
	}
	if msg.OccurredAt.After(w.lastEvent) {
		w.lastEvent = msg.OccurredAt
	}
	w.mu.Unlock()

	fields := log.NewFields().WithOperation(log.OpConsume)
	fields[log.FieldEventKind] = string(msg.Kind)
	fields["message_id"] = msg.ID
	fields["occurred_at"] = msg.OccurredAt
	if msg.Transaction != nil {
		t := msg.Transaction
		fields.WithTransaction(t.Type.String(), t.Description, t.Amount.Plain(), t.Timestamp)
	}
	if msg.Balance != "" {
		fields.WithBalance(msg.Balance)
	}
	if msg.Count > 0 {
		fields[log.FieldCount] = msg.Count
	}
	if msg.Key != "" {
		fields[log.FieldSettingKey] = msg.Key
	}
	w.logger.InfoContext(ctx, "Ledger event", fields.ToSlice()...)
	return nil
}

// remember must be called with mu held.
func (w *AuditWorker) remember(id string) {
	if len(w.order) >= seenWindow {
		delete(w.seen, w.order[0])
		w.order = w.order[1:]
	}
	w.seen[id] = struct{}{}
	w.order = append(w.order, id)
}

func (w *AuditWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Counts:      maps.Clone(w.counts),
		Duplicates:  w.duplicates,
		Unknown:     w.unknown,
		LastBalance: w.lastBalance,
		LastEvent:   w.lastEvent,
	}
}

// LogSummary writes the running totals at info level.
func (w *AuditWorker) LogSummary(ctx context.Context) {
	s := w.Stats()
	total := 0
	args := make([]any, 0, 2*len(s.Counts)+8)
	for kind, n := range s.Counts {
		total += n
		args = append(args, string(kind), n)
	}
	args = append(args,
		log.FieldCount, total,
		"duplicates", s.Duplicates,
		"unknown", s.Unknown,
		log.FieldBalance, s.LastBalance)
	w.logger.InfoContext(ctx, "Audit summary", args...)
}

// RunSummaries calls LogSummary every interval until ctx ends.
func (w *AuditWorker) RunSummaries(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.LogSummary(context.Background())
			return nil
		case <-ticker.C:
			w.LogSummary(ctx)
		}
	}
}
