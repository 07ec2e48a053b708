// Command clearqueued is the demo triage backend. It serves the ticket,
// trace, and override API over HTTP, backed by an embedded SQLite database
// seeded with the demo ticket collection on first start.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/clearqueue/clearqueue/internal/config"
	"github.com/clearqueue/clearqueue/internal/ratelimit"
	"github.com/clearqueue/clearqueue/internal/server"
	"github.com/clearqueue/clearqueue/internal/storage"
	"github.com/clearqueue/clearqueue/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("CLEARQUEUE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("clearqueued starting", "version", version, "port", cfg.Port, "db", cfg.DBPath)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Open the database and seed the demo collection if empty.
	db, err := storage.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.SeedDemo(ctx, time.Now().UTC()); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	// Rate limit the override endpoint only; reads are unmetered.
	limiter := ratelimit.NewMemory(5, 10)
	defer func() { _ = limiter.Close() }()

	if len(cfg.ServerKeys) == 0 {
		logger.Warn("auth disabled: no CLEARQUEUE_SERVER_API_KEYS configured")
	}

	srv := server.New(server.Config{
		DB:           db,
		Logger:       logger,
		Limiter:      limiter,
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Version:      version,
		APIKeys:      cfg.ServerKeys,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("clearqueued shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("clearqueued stopped")
	return nil
}
