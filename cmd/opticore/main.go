// Command opticore runs the thin-film filter design server: a design
// session, an asynchronous sweep worker and spectrum exports behind an
// HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"opticore/internal/blob"
	"opticore/internal/catalog"
	"opticore/internal/config"
	"opticore/internal/design"
	"opticore/internal/export"
	"opticore/internal/httpapi"
	"opticore/internal/infra/persistence"
	"opticore/internal/sweep"
	"opticore/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine, the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger := telemetry.NewTextLogger(parseLevel(cfg.LogLevel))
	metrics := telemetry.NewPrometheusMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogSrc, err := catalog.OpenFromEnv(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = catalogSrc.Close() }()
	catalogSrc = catalog.MetricsSource{Inner: catalogSrc, Observe: metrics.ObserveCatalogLookup}

	projects, err := persistence.OpenFromEnv()
	if err != nil {
		return err
	}
	defer func() { _ = projects.Close() }()

	blobs, err := blob.Open(ctx)
	if err != nil {
		return err
	}

	session := design.NewService(
		design.WithLogger(logger),
		design.WithMetrics(metrics),
		design.WithCatalog(catalogSrc),
		design.WithProjectStore(projects),
	)
	worker := sweep.NewWorker(
		sweep.WithLogger(logger),
		sweep.WithMetrics(metrics),
		sweep.WithQueueCapacity(cfg.QueueCapacity),
	)
	worker.Start()
	exporter := export.NewExporter(blobs,
		export.WithLogger(logger),
		export.WithMetrics(metrics),
	)

	api := httpapi.NewServer(session, worker, exporter,
		httpapi.WithLogger(logger),
		httpapi.WithCatalog(catalogSrc),
		httpapi.WithMetricsHandler(metrics.Handler()),
		httpapi.WithRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
	)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.Router(),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return worker.Stop(shutdownCtx)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
