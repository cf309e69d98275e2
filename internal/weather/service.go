// Package weather implements the cache-aside weather lookup with a
// persisted-record fallback.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/couchcryptid/weather-lookup-service/internal/observability"
)

// CacheStore is a key-value store with per-entry TTL.
type CacheStore interface {
	// Get returns the stored value, or ok=false on a miss or expired entry.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Provider fetches current conditions for a normalized postal code from an
// external weather API. Implementations validate the payload: a missing
// temperature block or empty description is an error, not a zero value.
type Provider interface {
	CurrentWeather(ctx context.Context, postalCode string) (domain.WeatherConditions, error)
}

// ObservationStore persists lookup results and serves the fallback query.
type ObservationStore interface {
	InsertObservation(ctx context.Context, obs domain.WeatherObservation) error
	// LatestObservation returns the most recent observation for the postal
	// code, or nil when none exists.
	LatestObservation(ctx context.Context, postalCode string) (*domain.WeatherObservation, error)
}

// Service orchestrates cache, provider, and repository for a lookup.
type Service struct {
	cache        CacheStore
	provider     Provider
	observations ObservationStore
	cacheTTL     time.Duration
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// New creates a Service. cacheTTL bounds how long a provider result is
// served without re-contacting the provider.
func New(cache CacheStore, provider Provider, observations ObservationStore, cacheTTL time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		cache:        cache,
		provider:     provider,
		observations: observations,
		cacheTTL:     cacheTTL,
		logger:       logger,
		metrics:      metrics,
	}
}

// cachedReading is the cache wire format: the full prior result, so a hit
// needs no additional fetch.
type cachedReading struct {
	Temperature float64 `json:"temperature"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Description string  `json:"description"`
}

// Fetch returns current weather for a normalized 8-digit postal code.
// Callers are responsible for normalization; see domain.NormalizePostalCode.
//
// Resolution order: cache, provider (persisting and caching on success),
// then the most recent persisted observation. Fallback results are not
// cached, so provider recovery is picked up on the next miss. When every
// tier comes up empty the error is domain.ErrWeatherUnavailable.
//
// Concurrent fetches for the same cold key race independently: both call
// the provider, both insert a row, and the cache is last-writer-wins.
func (s *Service) Fetch(ctx context.Context, postalCode, userID string) (domain.WeatherReading, error) {
	key := domain.WeatherCacheKey(postalCode)

	if reading, ok := s.fromCache(ctx, key, postalCode); ok {
		s.metrics.FetchRequests.WithLabelValues("cache").Inc()
		return reading, nil
	}

	conditions, err := s.provider.CurrentWeather(ctx, postalCode)
	if err == nil {
		s.persistAndCache(ctx, key, postalCode, userID, conditions)
		s.metrics.FetchRequests.WithLabelValues("provider").Inc()
		return domain.WeatherReading{
			PostalCode:        postalCode,
			WeatherConditions: conditions,
			Source:            domain.SourceProvider,
		}, nil
	}

	s.logger.Warn("provider fetch failed, trying repository fallback",
		"postal_code", postalCode, "error", err)

	obs, dbErr := s.observations.LatestObservation(ctx, postalCode)
	if dbErr != nil {
		s.metrics.FetchRequests.WithLabelValues("unavailable").Inc()
		return domain.WeatherReading{}, fmt.Errorf("repository fallback for %s: %w", postalCode, dbErr)
	}
	if obs != nil {
		s.metrics.FetchRequests.WithLabelValues("database").Inc()
		return obs.Reading(domain.SourceDatabase), nil
	}

	s.metrics.FetchRequests.WithLabelValues("unavailable").Inc()
	return domain.WeatherReading{}, domain.ErrWeatherUnavailable
}

// Cached reports whether a non-expired entry exists for the postal code.
func (s *Service) Cached(ctx context.Context, postalCode string) (bool, error) {
	return s.cache.Exists(ctx, domain.WeatherCacheKey(postalCode))
}

func (s *Service) fromCache(ctx context.Context, key, postalCode string) (domain.WeatherReading, bool) {
	value, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to a provider call rather than failing the lookup.
		s.logger.Warn("cache get failed", "key", key, "error", err)
		return domain.WeatherReading{}, false
	}
	if !ok {
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return domain.WeatherReading{}, false
	}

	var cached cachedReading
	if err := json.Unmarshal(value, &cached); err != nil {
		s.logger.Warn("cache entry corrupt, treating as miss", "key", key, "error", err)
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		return domain.WeatherReading{}, false
	}

	s.metrics.CacheLookups.WithLabelValues("hit").Inc()
	return domain.WeatherReading{
		PostalCode: postalCode,
		WeatherConditions: domain.WeatherConditions{
			Temperature: cached.Temperature,
			TempMin:     cached.TempMin,
			TempMax:     cached.TempMax,
			Description: cached.Description,
		},
		Source: domain.SourceCache,
	}, true
}

// persistAndCache records a provider success. Persistence and cache errors
// are logged but do not fail the fetch; the caller already has the data.
func (s *Service) persistAndCache(ctx context.Context, key, postalCode, userID string, conditions domain.WeatherConditions) {
	obs := domain.WeatherObservation{
		PostalCode:        postalCode,
		WeatherConditions: conditions,
		UserID:            userID,
		CreatedAt:         domain.Now(),
	}
	if err := s.observations.InsertObservation(ctx, obs); err != nil {
		s.logger.Error("persist observation failed", "postal_code", postalCode, "error", err)
	} else {
		s.metrics.ObservationsPersisted.Inc()
	}

	value, err := json.Marshal(cachedReading{
		Temperature: conditions.Temperature,
		TempMin:     conditions.TempMin,
		TempMax:     conditions.TempMax,
		Description: conditions.Description,
	})
	if err != nil {
		s.logger.Error("marshal cache entry failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("cache set failed", "key", key, "error", err)
	}
}
