package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/weather-lookup-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-lookup-service/internal/adapter/postgres"
	"github.com/couchcryptid/weather-lookup-service/internal/config"
	"github.com/couchcryptid/weather-lookup-service/internal/observability"
	"github.com/couchcryptid/weather-lookup-service/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	notifier := report.NewLogNotifier(logger)
	worker := report.NewWorker(store, store, notifier, cfg.ReportMaxAttempts, logger, metrics)

	consumer := kafkaadapter.NewConsumer(cfg, worker, logger, metrics)
	defer func() {
		if err := consumer.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}()

	logger.Info("report worker starting",
		"topic", cfg.KafkaReportTopic, "group", cfg.KafkaGroupID, "max_attempts", cfg.ReportMaxAttempts)
	if err := consumer.Consume(ctx); err != nil {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
