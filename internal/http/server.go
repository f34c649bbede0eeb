// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
	"dompet/internal/report"
	"dompet/internal/settings"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
	readyTimeout   = 5 * time.Second
)

// Ledger is the part of ledger.Store the API drives.
type Ledger interface {
	AddTransaction(ctx context.Context, typ core.TransactionType, amount core.Money, description string, occurredAt time.Time) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, timestamp int64) error
	SetBalance(ctx context.Context, balance core.Money) error
	ClearAll(ctx context.Context) error
	PruneOlderThan(ctx context.Context, cutoff core.Date) (int, error)
	ImportSnapshot(ctx context.Context, snap core.Snapshot) error
	ExportSnapshot(ctx context.Context) (core.Snapshot, error)
	Balance(ctx context.Context) (core.Money, error)
	Location() *time.Location
}

type Settings interface {
	Get(ctx context.Context) (settings.Settings, error)
	Apply(ctx context.Context, p settings.Patch) (settings.Settings, error)
}

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr     string
	Ledger   Ledger
	Settings Settings
	// Ready is checked by /readyz; nil means always ready.
	Ready Pinger
	// Realtime serves /ws when set.
	Realtime http.Handler
	// Reports caches month reports; nil disables caching.
	Reports   cache.Cache[report.MonthReport]
	RateLimit ratelimit.Config
	Logger    *log.Logger
	Now       func() time.Time
}

type Server struct {
	http.Server
	ledger   Ledger
	settings Settings
	ready    Pinger
	reports  cache.Cache[report.MonthReport]
	limiter  *ratelimit.Limiter
	logger   *log.Logger
	now      func() time.Time
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		ledger:   opts.Ledger,
		settings: opts.Settings,
		ready:    opts.Ready,
		reports:  opts.Reports,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		logger:   logger,
		now:      now,
		started:  now(),
	}

	detector := security.NewDetector(logger)
	api := http.NewServeMux()
	api.HandleFunc("GET /api/balance", s.handleGetBalance)
	api.HandleFunc("PUT /api/balance", s.handleSetBalance)
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/transactions/recent", s.handleRecentTransactions)
	api.HandleFunc("DELETE /api/transactions/{timestamp}", s.handleDeleteTransaction)
	api.HandleFunc("GET /api/reports/month", s.handleMonthReport)
	api.HandleFunc("GET /api/reports/monthly", s.handleMonthlySeries)
	api.HandleFunc("GET /api/export", s.handleExport)
	api.HandleFunc("POST /api/import", s.handleImport)
	api.HandleFunc("POST /api/clear", s.handleClear)
	api.HandleFunc("POST /api/prune", s.handlePrune)
	api.HandleFunc("GET /api/settings", s.handleGetSettings)
	api.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	limited := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
	})(security.NoStore(api))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", limited)
	if opts.Realtime != nil {
		mux.Handle("GET /ws", opts.Realtime)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(detector.ExtractClientIP, logger)
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           tracer.Middleware(detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// invalidate drops cached reports after a mutation made through this server.
func (s *Server) invalidate() {
	if s.reports != nil {
		s.reports.Purge()
	}
}
