package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"dompet/internal/backend"
	"dompet/internal/cache"
	"dompet/internal/cli"
	"dompet/internal/events"
	apphttp "dompet/internal/http"
	"dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/realtime"
	"dompet/internal/report"
	"dompet/internal/services"
	"dompet/internal/settings"
)

const reportCacheSize = 64

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, os.Stdout)

	ctx, stop := cli.ShutdownContext(context.Background(), logger)
	defer stop()

	bus := events.NewBus()
	publishers := events.Fanout{bus}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if client := backend.NewFactory(logger).ConnectAMQP(bcfg); client != nil {
		defer client.Close()
		publishers = append(publishers, client)
	}

	ledger, err := cli.OpenLedger(ctx, cfg, publishers, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer ledger.Close()

	reports := cache.NewLRUCache[report.MonthReport](reportCacheSize, cfg.CacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(reports)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	hub := realtime.NewHub(logger)
	srv := apphttp.NewServer(apphttp.Options{
		Addr:      ":" + cfg.Port,
		Ledger:    ledger,
		Settings:  settings.New(ledger.Backend.Store, publishers, logger),
		Ready:     ledger.Backend.Store,
		Realtime:  hub,
		Reports:   reports,
		RateLimit: ratelimit.DefaultConfig(),
		Logger:    logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	retention := services.NewRetentionProcessor(ledger, services.RetentionProcessorConfig{
		Interval: cfg.RetentionInterval,
		Location: cfg.Location(),
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx, bus) })
	g.Go(func() error { return cache.PurgeOnChange(gctx, bus, reports) })
	g.Go(func() error {
		if err := retention.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		return retention.Stop(stopCtx)
	})
	g.Go(func() error {
		logger.Info("Starting dompet server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"timezone", cfg.Location().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cli.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
