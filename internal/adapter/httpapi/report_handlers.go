package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createReportRequest struct {
	Format            string               `json:"format" binding:"required"`
	Filters           domain.ReportFilters `json:"filters"`
	EmailNotification bool                 `json:"email_notification"`
}

type reportResponse struct {
	ID                uuid.UUID            `json:"id"`
	Format            domain.ReportFormat  `json:"format"`
	Status            domain.ReportStatus  `json:"status"`
	Filters           domain.ReportFilters `json:"filters"`
	EmailNotification bool                 `json:"email_notification"`
	Attempts          int                  `json:"attempts"`
	FileSize          *int                 `json:"file_size,omitempty"`
	ErrorMessage      string               `json:"error_message,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	CompletedAt       *time.Time           `json:"completed_at,omitempty"`
}

func toReportResponse(job domain.ReportJob) reportResponse {
	return reportResponse{
		ID:                job.ID,
		Format:            job.Format,
		Status:            job.Status,
		Filters:           job.Filters,
		EmailNotification: job.EmailNotification,
		Attempts:          job.Attempts,
		ErrorMessage:      job.ErrorMessage,
		CreatedAt:         job.CreatedAt,
		CompletedAt:       job.CompletedAt,
	}
}

// toReportDetail is the single-job payload: it carries the file size, which
// the listing leaves out because the store does not load payloads there.
func toReportDetail(job domain.ReportJob) reportResponse {
	resp := toReportResponse(job)
	size := job.FileSize()
	resp.FileSize = &size
	return resp
}

// handleCreateReport persists a pending job and enqueues it for the worker.
// POST /api/v1/reports
func (s *Server) handleCreateReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	format := domain.ReportFormat(req.Format)
	if !format.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported report format %q", req.Format)})
		return
	}

	job := domain.NewReportJob(c.GetString("user_id"), c.GetString("user_email"), format, req.Filters, req.EmailNotification)

	ctx := c.Request.Context()
	if err := s.reports.CreateReportJob(ctx, job); err != nil {
		s.logger.Error("create report job failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := s.enqueuer.Enqueue(ctx, job); err != nil {
		// The pending row stays behind; a later resubmission or manual
		// requeue can pick it up.
		s.logger.Error("enqueue report job failed", "job_id", job.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue report"})
		return
	}
	s.metrics.ReportJobsEnqueued.Inc()

	c.JSON(http.StatusAccepted, toReportDetail(job))
}

// handleListReports returns the caller's jobs, most recent first.
// GET /api/v1/reports
func (s *Server) handleListReports(c *gin.Context) {
	limit, offset, err := pagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobs, err := s.reports.ListReportJobs(c.Request.Context(), c.GetString("user_id"), limit, offset)
	if err != nil {
		s.logger.Error("list report jobs failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	data := make([]reportResponse, 0, len(jobs))
	for _, job := range jobs {
		data = append(data, toReportResponse(job))
	}
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"count": len(data)},
	})
}

// handleGetReport returns one job's status payload, for polling.
// GET /api/v1/reports/:id
func (s *Server) handleGetReport(c *gin.Context) {
	job, ok := s.loadOwnJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toReportDetail(job))
}

// handleDownloadReport serves the generated file of a completed job.
// GET /api/v1/reports/:id/download
func (s *Server) handleDownloadReport(c *gin.Context) {
	job, ok := s.loadOwnJob(c)
	if !ok {
		return
	}
	if job.Status != domain.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "report is not ready for download"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.Filename()))
	c.Data(http.StatusOK, job.Format.ContentType(), job.FileData)
}

// loadOwnJob resolves the :id param to a job owned by the caller, writing
// the error response itself on failure.
func (s *Server) loadOwnJob(c *gin.Context) (domain.ReportJob, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid report id"})
		return domain.ReportJob{}, false
	}

	job, err := s.reports.JobForUser(c.Request.Context(), id, c.GetString("user_id"))
	if errors.Is(err, domain.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return domain.ReportJob{}, false
	}
	if err != nil {
		s.logger.Error("get report job failed", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return domain.ReportJob{}, false
	}
	return job, true
}
