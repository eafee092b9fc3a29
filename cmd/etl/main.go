package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wind-yield-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/wind-yield-etl/internal/adapter/kafka"
	"github.com/couchcryptid/wind-yield-etl/internal/adapter/openmeteo"
	"github.com/couchcryptid/wind-yield-etl/internal/adapter/store"
	"github.com/couchcryptid/wind-yield-etl/internal/config"
	"github.com/couchcryptid/wind-yield-etl/internal/fleet"
	"github.com/couchcryptid/wind-yield-etl/internal/observability"
	"github.com/couchcryptid/wind-yield-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	fl, err := fleet.Load(cfg.FleetFile)
	if err != nil {
		logger.Error("failed to load fleet", "path", cfg.FleetFile, "error", err)
		os.Exit(1)
	}
	logger.Info("fleet loaded", "path", cfg.FleetFile, "turbines", len(fl.Turbines))

	client := openmeteo.NewClient(cfg.OpenMeteoBaseURL, cfg.OpenMeteoTimeout, cfg.OpenMeteoRetries, metrics, logger)
	forecaster := openmeteo.NewCachedForecaster(client, cfg.ForecastCacheSize, cfg.ForecastCacheTTL, clockwork.NewRealClock(), metrics)

	writer := kafkaadapter.NewWriter(cfg, logger)
	loaders := pipeline.MultiLoader{writer}

	// Reports are also persisted locally when STORE_PATH is set.
	var reports httpadapter.ReportLister
	var reportStore *store.Store
	if cfg.StorePath != "" {
		reportStore, err = store.Open(cfg.StorePath, logger)
		if err != nil {
			logger.Error("failed to open report store", "path", cfg.StorePath, "error", err)
			os.Exit(1)
		}
		loaders = append(loaders, reportStore)
		reports = reportStore
		logger.Info("report store enabled", "path", cfg.StorePath)
	} else {
		logger.Info("report store disabled")
	}

	extractor := pipeline.NewFleetExtractor(fl.Specs(), forecaster, logger, metrics)
	transformer := pipeline.NewTransformer(logger)

	p := pipeline.New(extractor, transformer, loaders, logger, metrics, cfg.RefreshInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, fl, reports, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if reportStore != nil {
		if err := reportStore.Close(); err != nil {
			logger.Error("report store close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
