package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const createReportJobSQL = `
    INSERT INTO report_jobs (id, user_id, user_email, format, status, postal_code, created_after, created_before, email_notification, attempts, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// CreateReportJob persists a freshly enqueued job.
func (s *Store) CreateReportJob(ctx context.Context, job domain.ReportJob) error {
	_, err := s.pool.Exec(ctx, createReportJobSQL,
		job.ID,
		job.UserID,
		job.UserEmail,
		string(job.Format),
		string(job.Status),
		job.Filters.PostalCode,
		job.Filters.CreatedAfter,
		job.Filters.CreatedBefore,
		job.EmailNotification,
		job.Attempts,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

const reportJobColumns = `
    id, user_id, user_email, format, status, postal_code, created_after, created_before,
    file_data, error_message, email_notification, attempts, created_at, completed_at
`

const jobSQL = `
    SELECT ` + reportJobColumns + `
    FROM report_jobs
    WHERE id = $1
`

// Job returns the stored job, or domain.ErrReportNotFound.
func (s *Store) Job(ctx context.Context, id uuid.UUID) (domain.ReportJob, error) {
	job, err := scanReportJob(s.pool.QueryRow(ctx, jobSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReportJob{}, domain.ErrReportNotFound
	}
	if err != nil {
		return domain.ReportJob{}, fmt.Errorf("get report job: %w", err)
	}
	return job, nil
}

const jobForUserSQL = `
    SELECT ` + reportJobColumns + `
    FROM report_jobs
    WHERE id = $1 AND user_id = $2
`

// JobForUser returns the stored job only when it belongs to the user. A job
// owned by someone else is indistinguishable from a missing one.
func (s *Store) JobForUser(ctx context.Context, id uuid.UUID, userID string) (domain.ReportJob, error) {
	job, err := scanReportJob(s.pool.QueryRow(ctx, jobForUserSQL, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ReportJob{}, domain.ErrReportNotFound
	}
	if err != nil {
		return domain.ReportJob{}, fmt.Errorf("get report job: %w", err)
	}
	return job, nil
}

const listReportJobsSQL = `
    SELECT id, user_id, user_email, format, status, postal_code, created_after, created_before,
           NULL::bytea, error_message, email_notification, attempts, created_at, completed_at
    FROM report_jobs
    WHERE user_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
`

// ListReportJobs returns a page of the user's jobs, most recent first. The
// file payload is left out; Download fetches it per job.
func (s *Store) ListReportJobs(ctx context.Context, userID string, limit, offset int) ([]domain.ReportJob, error) {
	rows, err := s.pool.Query(ctx, listReportJobsSQL, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list report jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.ReportJob, 0)
	for rows.Next() {
		job, err := scanReportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

const incrementAttemptsSQL = `
    UPDATE report_jobs
    SET attempts = attempts + 1
    WHERE id = $1
    RETURNING attempts
`

// IncrementAttempts bumps the durable attempt counter and returns the new
// count.
func (s *Store) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := s.pool.QueryRow(ctx, incrementAttemptsSQL, id).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrReportNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

const markCompletedSQL = `
    UPDATE report_jobs
    SET status = 'completed', file_data = $2, error_message = '', completed_at = $3
    WHERE id = $1 AND status = 'pending'
`

// MarkCompleted stores the generated payload and flips the job to completed.
// The status guard keeps a stale redelivery from overwriting a terminal job.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, fileData []byte, completedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, markCompletedSQL, id, fileData, completedAt)
	if err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark report completed: job %s is not pending", id)
	}
	return nil
}

const markFailedSQL = `
    UPDATE report_jobs
    SET status = 'failed', error_message = $2, completed_at = $3
    WHERE id = $1 AND status = 'pending'
`

// MarkFailed flips the job to failed with the final error message. Same
// status guard as MarkCompleted.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, message string, completedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, markFailedSQL, id, message, completedAt)
	if err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark report failed: job %s is not pending", id)
	}
	return nil
}

func scanReportJob(row pgx.Row) (domain.ReportJob, error) {
	var (
		job    domain.ReportJob
		format string
		status string
	)
	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.UserEmail,
		&format,
		&status,
		&job.Filters.PostalCode,
		&job.Filters.CreatedAfter,
		&job.Filters.CreatedBefore,
		&job.FileData,
		&job.ErrorMessage,
		&job.EmailNotification,
		&job.Attempts,
		&job.CreatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return domain.ReportJob{}, err
	}
	job.Format = domain.ReportFormat(format)
	job.Status = domain.ReportStatus(status)
	return job, nil
}
