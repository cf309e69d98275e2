package httpapi

import (
	"net/http"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type weatherResponse struct {
	PostalCode   string  `json:"postal_code"`
	Temperature  float64 `json:"temperature"`
	TempMin      float64 `json:"temp_min"`
	TempMax      float64 `json:"temp_max"`
	Description  string  `json:"description"`
	FromCache    bool    `json:"from_cache"`
	FromDatabase bool    `json:"from_database"`
}

type observationResponse struct {
	ID          int64     `json:"id"`
	PostalCode  string    `json:"postal_code"`
	Temperature float64   `json:"temperature"`
	TempMin     float64   `json:"temp_min"`
	TempMax     float64   `json:"temp_max"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// handleFetchWeather resolves current weather for a postal code.
// GET /api/v1/weathers/:zip
//
// Validation and lookup failures are business outcomes, reported in the
// body rather than the status code.
func (s *Server) handleFetchWeather(c *gin.Context) {
	postalCode, err := domain.NormalizePostalCode(c.Param("zip"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	reading, err := s.weather.Fetch(c.Request.Context(), postalCode, c.GetString("user_id"))
	if err != nil {
		s.logger.Warn("weather fetch failed", "postal_code", postalCode, "error", err)
		c.JSON(http.StatusOK, gin.H{"error": "unable to fetch weather data"})
		return
	}

	c.JSON(http.StatusOK, weatherResponse{
		PostalCode:   reading.PostalCode,
		Temperature:  reading.Temperature,
		TempMin:      reading.TempMin,
		TempMax:      reading.TempMax,
		Description:  reading.Description,
		FromCache:    reading.FromCache(),
		FromDatabase: reading.FromDatabase(),
	})
}

// handleListWeathers returns the caller's lookup history.
// GET /api/v1/weathers
func (s *Server) handleListWeathers(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, offset, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	observations, err := s.history.ListObservations(c.Request.Context(), c.GetString("user_id"), filters, limit, offset)
	if err != nil {
		s.logger.Error("list observations failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	data := make([]observationResponse, 0, len(observations))
	for _, obs := range observations {
		data = append(data, observationResponse{
			ID:          obs.ID,
			PostalCode:  obs.PostalCode,
			Temperature: obs.Temperature,
			TempMin:     obs.TempMin,
			TempMax:     obs.TempMax,
			Description: obs.Description,
			CreatedAt:   obs.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"count": len(data)},
	})
}
