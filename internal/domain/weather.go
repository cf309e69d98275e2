package domain

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// PostalCodeLength is the digit count of a normalized Brazilian CEP.
const PostalCodeLength = 8

var (
	// ErrInvalidPostalCode is returned when input does not normalize to an
	// 8-digit CEP.
	ErrInvalidPostalCode = errors.New("postal code must be 8 digits")

	// ErrWeatherUnavailable is returned when the provider failed and no
	// prior observation exists for the postal code.
	ErrWeatherUnavailable = errors.New("weather data unavailable")
)

// WeatherConditions holds the measured values of a single lookup.
// Temperatures are Celsius.
type WeatherConditions struct {
	Temperature float64 `json:"temperature"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Description string  `json:"description"`
}

// Source tags where a WeatherReading came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
)

// WeatherReading is the result of a successful fetch: conditions plus
// provenance. Total unavailability is signalled by ErrWeatherUnavailable,
// never by a zero-valued reading.
type WeatherReading struct {
	PostalCode string
	WeatherConditions
	Source Source
}

// FromCache reports whether the reading was served from the cache.
func (r WeatherReading) FromCache() bool { return r.Source == SourceCache }

// FromDatabase reports whether the reading is a persisted-record fallback.
func (r WeatherReading) FromDatabase() bool { return r.Source == SourceDatabase }

// WeatherObservation is one persisted lookup result. Rows are immutable:
// every successful provider fetch inserts a new one, even for a postal code
// that already has rows.
type WeatherObservation struct {
	ID         int64
	PostalCode string
	WeatherConditions
	UserID    string // empty for public (unauthenticated) lookups
	CreatedAt time.Time
}

// Reading converts a stored observation into a reading with the given source.
func (o WeatherObservation) Reading(src Source) WeatherReading {
	return WeatherReading{
		PostalCode:        o.PostalCode,
		WeatherConditions: o.WeatherConditions,
		Source:            src,
	}
}

// NormalizePostalCode strips non-digit characters and validates the result
// is exactly 8 digits.
func NormalizePostalCode(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	cep := b.String()
	if len(cep) != PostalCodeLength {
		return "", ErrInvalidPostalCode
	}
	return cep, nil
}

// WeatherCacheKey returns the cache key for a normalized postal code.
func WeatherCacheKey(postalCode string) string {
	return "weather/" + postalCode
}
