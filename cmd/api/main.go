package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-lookup-service/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/weather-lookup-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-lookup-service/internal/adapter/openweather"
	"github.com/couchcryptid/weather-lookup-service/internal/adapter/postgres"
	"github.com/couchcryptid/weather-lookup-service/internal/adapter/rediscache"
	"github.com/couchcryptid/weather-lookup-service/internal/config"
	"github.com/couchcryptid/weather-lookup-service/internal/observability"
	"github.com/couchcryptid/weather-lookup-service/internal/weather"
	"github.com/redis/go-redis/v9"
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

	cache := rediscache.New(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}))
	if err := cache.Ping(ctx); err != nil {
		logger.Error("redis connect failed", "error", err)
		os.Exit(1)
	}

	provider := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.OpenWeatherCountry, cfg.OpenWeatherTimeout, logger, metrics)
	svc := weather.New(cache, provider, store, cfg.WeatherCacheTTL, logger, metrics)

	enqueuer := kafkaadapter.NewEnqueuer(cfg, logger)
	defer func() {
		if err := enqueuer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	srv := httpapi.NewServer(cfg, svc, store, store, enqueuer, logger, metrics)
	if err := srv.Run(ctx); err != nil {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
