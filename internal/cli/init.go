// Package cli holds the process bootstrap shared by the dompet binaries and
// the dompetctl subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dompet/internal/backend"
	"dompet/internal/config"
	"dompet/internal/events"
	"dompet/internal/ledger"
	"dompet/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default. An unknown level falls back to info.
func SetupLogger(cfg *config.Config, out io.Writer) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    out,
	})
	if err != nil {
		logger.Warn("Unknown log level, using info", log.FieldError, err)
	}
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Ledger is an opened ledger together with the backend it lives on.
type Ledger struct {
	*ledger.Store
	Backend *backend.BackendResult

	exporter io.Closer
}

// Close releases the event exporter, if any, and the backend.
func (l *Ledger) Close() error {
	var errs []error
	if l.exporter != nil {
		errs = append(errs, l.exporter.Close())
	}
	if l.Backend != nil && l.Backend.Cleanup != nil {
		errs = append(errs, l.Backend.Cleanup())
	}
	return errors.Join(errs...)
}

// OpenAuditedLedger is OpenLedger for one-shot commands. When AMQP_URL is
// set, mutations are exported to the audit exchange exactly like the
// server's; a broker that cannot be reached only costs the export.
func OpenAuditedLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Ledger, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	client := backend.NewFactory(logger).ConnectAMQP(bcfg)
	if client == nil {
		return OpenLedger(ctx, cfg, nil, logger)
	}

	l, err := OpenLedger(ctx, cfg, client, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	l.exporter = client
	return l, nil
}

// OpenLedger creates the configured backend and an initialized ledger on it.
// pub may be nil.
func OpenLedger(ctx context.Context, cfg *config.Config, pub events.Publisher, logger *log.Logger) (*Ledger, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	opts := []ledger.Option{
		ledger.WithLocation(cfg.Location()),
		ledger.WithLogger(logger),
	}
	if pub != nil {
		opts = append(opts, ledger.WithPublisher(pub))
	}
	store := ledger.New(res.Store, opts...)
	if err := store.Init(ctx); err != nil {
		res.Cleanup()
		return nil, fmt.Errorf("initialize ledger: %w", err)
	}
	return &Ledger{Store: store, Backend: res}, nil
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM. The
// returned stop releases the signal handler.
func ShutdownContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// ShutdownTimeout bounds how long a process waits for its components to
// stop after the shutdown signal.
const ShutdownTimeout = 30 * time.Second
