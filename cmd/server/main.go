package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"

	"github.com/JonMunkholm/csvdash/internal/config"
	"github.com/JonMunkholm/csvdash/internal/core"
	"github.com/JonMunkholm/csvdash/internal/logging"
	"github.com/JonMunkholm/csvdash/internal/telemetry"
	"github.com/JonMunkholm/csvdash/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String(), "version", version)

	ctx := context.Background()

	// Telemetry is opt-in; without it spans and metrics go to noop providers.
	var (
		tracer trace.Tracer = telemetry.NoopTracer()
		inst   core.Instrumentation = telemetry.NoopInstruments()
		otel   *telemetry.Provider
	)
	if cfg.Telemetry.Enabled {
		otel, err = telemetry.Init(ctx, cfg.Telemetry.ServiceName, version)
		if err != nil {
			slog.Error("failed to initialise telemetry", "error", err)
			os.Exit(1)
		}
		tracer = telemetry.Tracer(cfg.Telemetry.ServiceName)
		inst = telemetry.NewInstruments()
		slog.Info("telemetry enabled", "service", cfg.Telemetry.ServiceName)
	}

	auditor, closeAudit, err := openAuditor(ctx, cfg)
	if err != nil {
		slog.Error("failed to open activity trail", "error", err)
		os.Exit(1)
	}

	service := core.NewService(core.Options{
		MaxFileSize:     cfg.Upload.MaxFileSize,
		MaxConcurrent:   cfg.Upload.MaxConcurrent,
		MaxWait:         cfg.Upload.MaxWaitTime,
		SessionTTL:      cfg.Session.TTL,
		Auditor:         auditor,
		Instrumentation: inst,
		Tracer:          tracer,
	})

	server := web.NewServer(service, cfg, tracer)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(ctx)
	go service.StartSessionJanitor(jobCtx, cfg.Session.SweepInterval)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let in-flight parses finish before the listener goes away.
		if status := service.Limiter().Status(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		if err := closeAudit(); err != nil {
			slog.Warn("closing activity trail", "error", err)
		}
		if err := otel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// openAuditor picks the activity trail sink: Postgres when a database URL is
// configured, else an NDJSON file when a path is set, else nothing.
func openAuditor(ctx context.Context, cfg *config.Config) (core.Auditor, func() error, error) {
	switch {
	case cfg.Database.Enabled():
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		a, err := core.NewPgAuditor(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("activity trail: postgres")
		return a, func() error {
			pool.Close()
			return nil
		}, nil

	case cfg.Audit.FilePath != "":
		a, err := core.NewFileAuditor(cfg.Audit.FilePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("activity trail: file", "path", cfg.Audit.FilePath)
		return a, a.Close, nil

	default:
		slog.Info("activity trail disabled")
		return core.NoopAuditor{}, func() error { return nil }, nil
	}
}
