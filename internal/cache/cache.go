// Package cache holds derived views (month reports) between ledger changes.
package cache

import (
	"context"
	"time"

	"dompet/internal/events"
	"dompet/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry and starts a new generation.
	Purge()
	// Generation counts purges. A value computed from data read after
	// Generation returned g is stale once the generation moves past g.
	Generation() uint64
	// SetIfGeneration stores data only while the cache is still at gen.
	SetIfGeneration(gen uint64, key string, data T) bool
	Size() int
}

// Cleaner is a cache that can evict expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Purger is a cache that can be emptied wholesale.
type Purger interface {
	Purge()
}

// Manager runs periodic expiry over the registered caches.
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	logger      *log.Logger
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default(log.ComponentCache)
	}
	return &Manager{
		caches:      make([]Cleaner, 0),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
		logger:      logger.WithComponent(log.ComponentCache),
	}
}

// Register adds a cache to the manager for cleanup. Call before StartCleanup.
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := m.CleanAll()
			if cleaned > 0 {
				m.logger.Debug("Expired cache entries removed", log.FieldCount, cleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanAll expires entries in every registered cache and returns the total removed.
func (m *Manager) CleanAll() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup loop started by StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}

// PurgeOnChange empties caches after every event that alters the ledger,
// until ctx ends.
func PurgeOnChange(ctx context.Context, bus *events.Bus, caches ...Purger) error {
	feed, cancel := bus.Subscribe(16)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-feed:
			if !ok {
				return nil
			}
			if !e.Kind.LedgerChange() {
				continue
			}
			for _, c := range caches {
				c.Purge()
			}
		}
	}
}
