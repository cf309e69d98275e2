// Package httpapi exposes the weather lookup and report job REST API.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/config"
	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/couchcryptid/weather-lookup-service/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Identity headers set by the fronting auth proxy. The API trusts them;
// token verification happens upstream.
const (
	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
)

const defaultPerPage = 10

// WeatherFetcher resolves current weather for a postal code.
type WeatherFetcher interface {
	Fetch(ctx context.Context, postalCode, userID string) (domain.WeatherReading, error)
}

// HistoryStore serves the lookup history listing.
type HistoryStore interface {
	ListObservations(ctx context.Context, userID string, filters domain.ReportFilters, limit, offset int) ([]domain.WeatherObservation, error)
}

// ReportStore persists and reads report jobs.
type ReportStore interface {
	CreateReportJob(ctx context.Context, job domain.ReportJob) error
	JobForUser(ctx context.Context, id uuid.UUID, userID string) (domain.ReportJob, error)
	ListReportJobs(ctx context.Context, userID string, limit, offset int) ([]domain.ReportJob, error)
}

// ReportEnqueuer hands a persisted job to the worker queue.
type ReportEnqueuer interface {
	Enqueue(ctx context.Context, job domain.ReportJob) error
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg      *config.Config
	weather  WeatherFetcher
	history  HistoryStore
	reports  ReportStore
	enqueuer ReportEnqueuer
	logger   *slog.Logger
	metrics  *observability.Metrics
	engine   *gin.Engine
}

// NewServer constructs a server with routes and middleware.
func NewServer(cfg *config.Config, weather WeatherFetcher, history HistoryStore, reports ReportStore, enqueuer ReportEnqueuer, logger *slog.Logger, metrics *observability.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:      cfg,
		weather:  weather,
		history:  history,
		reports:  reports,
		enqueuer: enqueuer,
		logger:   logger,
		metrics:  metrics,
		engine:   engine,
	}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	if s.cfg.APIBearerToken != "" {
		v1.Use(bearerAuthMiddleware(s.cfg.APIBearerToken))
	}
	v1.Use(identityMiddleware())

	// Weather lookup is open; an anonymous lookup produces an unowned
	// observation.
	v1.GET("/weathers/:zip", s.handleFetchWeather)
	v1.GET("/weathers", requireUser(), s.handleListWeathers)

	reports := v1.Group("/reports", requireUser())
	reports.POST("", s.handleCreateReport)
	reports.GET("", s.handleListReports)
	reports.GET("/:id", s.handleGetReport)
	reports.GET("/:id/download", s.handleDownloadReport)
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// identityMiddleware copies the trusted identity headers into the request
// scope. Missing headers leave the request anonymous.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", strings.TrimSpace(c.GetHeader(headerUserID)))
		c.Set("user_email", strings.TrimSpace(c.GetHeader(headerUserEmail)))
		c.Next()
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("user_id") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// pagination reads page/per query params, 1-based page, default 10 per page.
func pagination(c *gin.Context) (limit, offset int, err error) {
	page := 1
	if v := c.Query("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, errors.New("invalid page")
		}
	}
	per := defaultPerPage
	if v := c.Query("per"); v != "" {
		per, err = strconv.Atoi(v)
		if err != nil || per < 1 || per > 100 {
			return 0, 0, errors.New("invalid per")
		}
	}
	return per, (page - 1) * per, nil
}

// parseFilters reads the shared observation filter query params.
func parseFilters(c *gin.Context) (domain.ReportFilters, error) {
	filters := domain.ReportFilters{
		PostalCode: strings.TrimSpace(c.Query("postal_code")),
	}
	if v := c.Query("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.ReportFilters{}, errors.New("invalid created_after timestamp")
		}
		filters.CreatedAfter = &t
	}
	if v := c.Query("created_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.ReportFilters{}, errors.New("invalid created_before timestamp")
		}
		filters.CreatedBefore = &t
	}
	return filters, nil
}
