package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
// Both binaries (api and worker) share one config so a single .env drives a
// whole deployment.
type Config struct {
	HTTPAddr        string
	APIBearerToken  string // optional; empty disables the bearer middleware
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DatabaseURL string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	WeatherCacheTTL time.Duration

	// OpenWeatherMap provider configuration.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	OpenWeatherCountry string
	OpenWeatherTimeout time.Duration

	KafkaBrokers     []string
	KafkaReportTopic string
	KafkaGroupID     string

	// Report job retry policy, enforced by the queue consumer.
	ReportMaxAttempts         int
	ReportRetryInitialBackoff time.Duration
	ReportRetryMaxBackoff     time.Duration
}

// Load reads configuration from the environment (and an optional .env file),
// applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parseDurationEnv("WEATHER_CACHE_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}

	providerTimeout, err := parseDurationEnv("OPENWEATHER_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	maxAttempts, err := parseIntEnv("REPORT_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	initialBackoff, err := parseDurationEnv("REPORT_RETRY_INITIAL_BACKOFF", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	maxBackoff, err := parseDurationEnv("REPORT_RETRY_MAX_BACKOFF", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		APIBearerToken:  strings.TrimSpace(os.Getenv("API_BEARER_TOKEN")),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatabaseURL: envOrDefault("DATABASE_URL", "postgres://localhost:5432/weather_lookup"),

		RedisAddr:       envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:         redisDB,
		WeatherCacheTTL: cacheTTL,

		OpenWeatherAPIKey:  strings.TrimSpace(os.Getenv("OPENWEATHER_API_KEY")),
		OpenWeatherBaseURL: envOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		OpenWeatherCountry: envOrDefault("OPENWEATHER_COUNTRY", "br"),
		OpenWeatherTimeout: providerTimeout,

		KafkaBrokers:     parseCSVEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaReportTopic: envOrDefault("KAFKA_REPORT_TOPIC", "report-jobs"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "weather-report-worker"),

		ReportMaxAttempts:         maxAttempts,
		ReportRetryInitialBackoff: initialBackoff,
		ReportRetryMaxBackoff:     maxBackoff,
	}

	if cfg.ReportMaxAttempts < 1 {
		return nil, errors.New("REPORT_MAX_ATTEMPTS must be >= 1")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseCSVEnv(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
