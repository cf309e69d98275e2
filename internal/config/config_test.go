package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.APIBearerToken)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.WeatherCacheTTL)
	assert.Equal(t, "https://api.openweathermap.org/data/2.5", cfg.OpenWeatherBaseURL)
	assert.Equal(t, "br", cfg.OpenWeatherCountry)
	assert.Equal(t, 5*time.Second, cfg.OpenWeatherTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "report-jobs", cfg.KafkaReportTopic)
	assert.Equal(t, "weather-report-worker", cfg.KafkaGroupID)
	assert.Equal(t, 3, cfg.ReportMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.ReportRetryInitialBackoff)
	assert.Equal(t, 5*time.Second, cfg.ReportRetryMaxBackoff)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("API_BEARER_TOKEN", "secret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATABASE_URL", "postgres://db:5432/weather")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("WEATHER_CACHE_TTL", "10m")
	t.Setenv("OPENWEATHER_API_KEY", "key-123")
	t.Setenv("OPENWEATHER_BASE_URL", "http://stub:8081")
	t.Setenv("OPENWEATHER_COUNTRY", "pt")
	t.Setenv("OPENWEATHER_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_REPORT_TOPIC", "custom-reports")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("REPORT_MAX_ATTEMPTS", "5")
	t.Setenv("REPORT_RETRY_INITIAL_BACKOFF", "1s")
	t.Setenv("REPORT_RETRY_MAX_BACKOFF", "8s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "secret", cfg.APIBearerToken)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "postgres://db:5432/weather", cfg.DatabaseURL)
	assert.Equal(t, "redis:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 10*time.Minute, cfg.WeatherCacheTTL)
	assert.Equal(t, "key-123", cfg.OpenWeatherAPIKey)
	assert.Equal(t, "http://stub:8081", cfg.OpenWeatherBaseURL)
	assert.Equal(t, "pt", cfg.OpenWeatherCountry)
	assert.Equal(t, 2*time.Second, cfg.OpenWeatherTimeout)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-reports", cfg.KafkaReportTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, 5, cfg.ReportMaxAttempts)
	assert.Equal(t, 1*time.Second, cfg.ReportRetryInitialBackoff)
	assert.Equal(t, 8*time.Second, cfg.ReportRetryMaxBackoff)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeCacheTTL(t *testing.T) {
	t.Setenv("WEATHER_CACHE_TTL", "-1m")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEATHER_CACHE_TTL")
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "two")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_DB")
}

func TestLoad_InvalidMaxAttempts(t *testing.T) {
	t.Setenv("REPORT_MAX_ATTEMPTS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORT_MAX_ATTEMPTS")
}

func TestLoad_InvalidProviderTimeout(t *testing.T) {
	t.Setenv("OPENWEATHER_TIMEOUT", "bad")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENWEATHER_TIMEOUT")
}
