// Package report implements report generation jobs: the worker state
// machine and the CSV, XLSX, and PDF encoders.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/couchcryptid/weather-lookup-service/internal/observability"
	"github.com/google/uuid"
)

// JobStore persists report jobs and their lifecycle state. MarkCompleted
// and MarkFailed must only transition pending jobs, so redelivered runs
// cannot overwrite a terminal state.
type JobStore interface {
	Job(ctx context.Context, id uuid.UUID) (domain.ReportJob, error)
	// IncrementAttempts bumps the durable attempt counter and returns the
	// new value.
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, fileData []byte, completedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string, completedAt time.Time) error
}

// ObservationSource serves the filtered, user-scoped observation set a
// report is built from, ordered by creation time descending.
type ObservationSource interface {
	ObservationsForReport(ctx context.Context, userID string, filters domain.ReportFilters) ([]domain.WeatherObservation, error)
}

// Notifier tells the owner a report is ready. Delivery is fire-and-forget;
// failures are logged and never affect the job outcome.
type Notifier interface {
	ReportReady(ctx context.Context, job domain.ReportJob) error
}

// Worker executes report jobs. A run is reproducible from the job ID alone:
// everything else is loaded from the store, so any worker process can pick
// up any delivery.
type Worker struct {
	jobs         JobStore
	observations ObservationSource
	notifier     Notifier
	maxAttempts  int
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewWorker creates a Worker. maxAttempts must match the queue's delivery
// budget: the attempt that exhausts it is the one that marks the job failed.
func NewWorker(jobs JobStore, observations ObservationSource, notifier Notifier, maxAttempts int, logger *slog.Logger, metrics *observability.Metrics) *Worker {
	return &Worker{
		jobs:         jobs,
		observations: observations,
		notifier:     notifier,
		maxAttempts:  maxAttempts,
		logger:       logger,
		metrics:      metrics,
	}
}

// Run executes one delivery of the job. Terminal jobs are a no-op, so
// at-least-once redelivery is safe. On failure the job stays pending while
// attempts remain (the error is returned so the queue can redeliver); the
// attempt that exhausts the budget marks it failed with the error message.
func (w *Worker) Run(ctx context.Context, jobID uuid.UUID) error {
	job, err := w.jobs.Job(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", jobID, err)
	}

	if job.Status.Terminal() {
		w.logger.Info("skipping redelivered job in terminal state",
			"job_id", job.ID, "status", job.Status)
		w.metrics.ReportJobRuns.WithLabelValues("skipped").Inc()
		return nil
	}

	attempt, err := w.jobs.IncrementAttempts(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("record attempt for job %s: %w", jobID, err)
	}

	start := time.Now()

	observations, err := w.observations.ObservationsForReport(ctx, job.UserID, job.Filters)
	if err != nil {
		return w.fail(ctx, job, attempt, fmt.Errorf("load observations: %w", err))
	}

	data, err := Encode(job, observations)
	if err != nil {
		return w.fail(ctx, job, attempt, fmt.Errorf("encode %s report: %w", job.Format, err))
	}

	completedAt := domain.Now()
	if err := w.jobs.MarkCompleted(ctx, job.ID, data, completedAt); err != nil {
		return w.fail(ctx, job, attempt, fmt.Errorf("persist report result: %w", err))
	}

	w.metrics.ReportJobRuns.WithLabelValues("completed").Inc()
	w.metrics.ReportGenerationDuration.WithLabelValues(string(job.Format)).Observe(time.Since(start).Seconds())
	w.metrics.ReportRows.Observe(float64(len(observations)))
	w.logger.Info("report generated",
		"job_id", job.ID, "format", job.Format, "rows", len(observations), "bytes", len(data), "attempt", attempt)

	if job.EmailNotification {
		job.Status = domain.StatusCompleted
		job.FileData = data
		job.CompletedAt = &completedAt
		if err := w.notifier.ReportReady(ctx, job); err != nil {
			w.logger.Warn("report ready notification failed", "job_id", job.ID, "error", err)
		}
	}

	return nil
}

func (w *Worker) fail(ctx context.Context, job domain.ReportJob, attempt int, cause error) error {
	if attempt >= w.maxAttempts {
		if err := w.jobs.MarkFailed(ctx, job.ID, cause.Error(), domain.Now()); err != nil {
			w.logger.Error("mark job failed errored", "job_id", job.ID, "error", err)
		}
		w.metrics.ReportJobRuns.WithLabelValues("failed").Inc()
		w.logger.Error("report job failed permanently",
			"job_id", job.ID, "attempt", attempt, "error", cause)
	} else {
		w.metrics.ReportJobRuns.WithLabelValues("retried").Inc()
		w.logger.Warn("report job attempt failed, leaving pending for retry",
			"job_id", job.ID, "attempt", attempt, "max_attempts", w.maxAttempts, "error", cause)
	}
	return cause
}
