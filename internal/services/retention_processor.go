package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dompet/internal/core"
	"dompet/internal/ledger"
	"dompet/internal/log"
)

// Pruner removes ledger entries dated before a cutoff.
type Pruner interface {
	PruneOlderThan(ctx context.Context, cutoff core.Date) (int, error)
}

// RetentionProcessorConfig holds configuration for the retention processor
type RetentionProcessorConfig struct {
	// Interval between prune runs (default: 720h, about a month)
	Interval time.Duration

	// Location decides which calendar day "today" is (default: time.Local)
	Location *time.Location

	// Now is the clock used to compute the cutoff (default: time.Now)
	Now func() time.Time
}

// DefaultRetentionProcessorConfig returns sensible defaults
func DefaultRetentionProcessorConfig() RetentionProcessorConfig {
	return RetentionProcessorConfig{
		Interval: 720 * time.Hour,
		Location: time.Local,
		Now:      time.Now,
	}
}

// RetentionProcessor prunes transactions older than the retention period,
// once on start and then on every interval. Runs never overlap.
type RetentionProcessor struct {
	pruner Pruner
	config RetentionProcessorConfig
	logger *log.Logger

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	stopping bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	lastRun  time.Time
	lastSeen int
}

func NewRetentionProcessor(pruner Pruner, config RetentionProcessorConfig, logger *log.Logger) *RetentionProcessor {
	defaults := DefaultRetentionProcessorConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	if logger == nil {
		logger = log.Default(log.ComponentRetention)
	}
	return &RetentionProcessor{
		pruner: pruner,
		config: config,
		logger: logger.WithComponent(log.ComponentRetention),
	}
}

// Start begins the prune loop. Returns an error if already running.
func (p *RetentionProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("retention processor is already running")
	}
	p.running = true
	p.stopping = false
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	p.logger.InfoContext(ctx, "Retention processor started", "interval", p.config.Interval)
	return nil
}

// Stop signals the loop to exit and waits for it, bounded by ctx.
func (p *RetentionProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	if !p.stopping {
		p.stopping = true
		close(p.stopCh)
	}
	doneCh := p.doneCh
	p.mu.Unlock()

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Retention processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Retention processor stop timed out")
		return ctx.Err()
	}
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *RetentionProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// LastRun reports when the last prune finished and how many entries it removed.
func (p *RetentionProcessor) LastRun() (time.Time, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastRun, p.lastSeen
}

// Wait blocks until the loop has exited.
func (p *RetentionProcessor) Wait() {
	p.mu.Lock()
	doneCh := p.doneCh
	p.mu.Unlock()
	if doneCh != nil {
		<-doneCh
	}
}

func (p *RetentionProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		close(doneCh)
	}()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// Prune immediately on startup
	p.RunOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce prunes everything dated before today minus the retention period.
func (p *RetentionProcessor) RunOnce(ctx context.Context) (int, error) {
	cutoff := ledger.RetentionCutoff(p.config.Now(), p.config.Location)
	removed, err := p.pruner.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.ErrorContext(ctx, "Retention prune failed",
			log.FieldCutoff, cutoff.String(),
			log.FieldError, err)
		return 0, err
	}

	p.mu.Lock()
	p.lastRun = p.config.Now()
	p.lastSeen = removed
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "Retention prune finished",
		log.FieldCutoff, cutoff.String(),
		log.FieldCount, removed)
	return removed, nil
}
