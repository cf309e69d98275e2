// Package openweather implements weather.Provider using the OpenWeatherMap
// current weather API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/couchcryptid/weather-lookup-service/internal/observability"
	"github.com/sony/gobreaker"
)

// Client calls the OpenWeatherMap /weather endpoint by postal code. All
// failure modes (timeout, non-2xx, malformed payload, open breaker) surface
// as errors so the fetch service can fall back to persisted data.
type Client struct {
	apiKey     string
	country    string
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an OpenWeatherMap client. country is the ISO country
// suffix for zip queries ("br"). The circuit breaker keeps a flapping
// provider from stretching every lookup to the full timeout.
func NewClient(apiKey, baseURL, country string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		country: country,
		breaker: cb,
		logger:  logger,
		metrics: metrics,
	}
}

// CurrentWeather fetches current conditions for a normalized 8-digit
// postal code.
func (c *Client) CurrentWeather(ctx context.Context, postalCode string) (domain.WeatherConditions, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, postalCode)
	})
	if err != nil {
		return domain.WeatherConditions{}, err
	}
	return result.(domain.WeatherConditions), nil
}

func (c *Client) fetch(ctx context.Context, postalCode string) (domain.WeatherConditions, error) {
	params := url.Values{
		"zip":   {fmt.Sprintf("%s,%s", postalCode, c.country)},
		"units": {"metric"},
		"appid": {c.apiKey},
	}
	fullURL := c.baseURL + "/weather?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherConditions{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.WeatherConditions{}, fmt.Errorf("current weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.WeatherConditions{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var owResp response
	if err := json.NewDecoder(resp.Body).Decode(&owResp); err != nil {
		return domain.WeatherConditions{}, fmt.Errorf("decode response: %w", err)
	}

	return owResp.conditions()
}

// OpenWeatherMap API response types. Only the fields a lookup needs.

type response struct {
	Main    *mainBlock  `json:"main"`
	Weather []condition `json:"weather"`
}

type mainBlock struct {
	Temp    float64 `json:"temp"`
	TempMin float64 `json:"temp_min"`
	TempMax float64 `json:"temp_max"`
}

type condition struct {
	Description string `json:"description"`
}

// conditions validates and extracts the payload. A missing main block,
// empty weather list, or blank description is malformed: better to fail
// and let the caller fall back than serve partial data.
func (r response) conditions() (domain.WeatherConditions, error) {
	if r.Main == nil {
		return domain.WeatherConditions{}, errors.New("malformed response: missing main block")
	}
	if len(r.Weather) == 0 || r.Weather[0].Description == "" {
		return domain.WeatherConditions{}, errors.New("malformed response: missing weather description")
	}
	return domain.WeatherConditions{
		Temperature: r.Main.Temp,
		TempMin:     r.Main.TempMin,
		TempMax:     r.Main.TempMax,
		Description: r.Weather[0].Description,
	}, nil
}
