package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/adapter/http"
	kafkaadapter "github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/adapter/kafka"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/adapter/nwis"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/config"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/observability"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/pipeline"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/retrieval"
)

func main() {
	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if len(cfg.Sites) == 0 {
		slog.Error("SITES is required, set a comma-separated list of site numbers")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := nwis.NewClient(cfg.WaterServicesURL, cfg.WaterDataURL, cfg.FetchTimeout, logger)
	fetcher := nwis.NewCachedFetcher(client, cfg.CacheSize)
	reader := retrieval.New(fetcher, metrics, logger)

	writer := kafkaadapter.NewWriter(cfg, logger)

	p := pipeline.New(reader, writer, logger, metrics,
		cfg.Sites, cfg.ParameterCodes, cfg.PollInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, httpadapter.Config{
		Sites:          cfg.Sites,
		ParameterCodes: cfg.ParameterCodes,
		PollInterval:   cfg.PollInterval,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ingest loop.
	go func() {
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
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
