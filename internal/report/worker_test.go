package report_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/couchcryptid/weather-lookup-service/internal/observability"
	"github.com/couchcryptid/weather-lookup-service/internal/report"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockJobStore struct {
	job          domain.ReportJob
	jobErr       error
	attempts     int
	completed    []byte
	completedAt  *time.Time
	failedMsg    string
	failedAt     *time.Time
	completeErr  error
	incrementErr error
}

func (m *mockJobStore) Job(_ context.Context, id uuid.UUID) (domain.ReportJob, error) {
	if m.jobErr != nil {
		return domain.ReportJob{}, m.jobErr
	}
	if id != m.job.ID {
		return domain.ReportJob{}, domain.ErrReportNotFound
	}
	return m.job, nil
}

func (m *mockJobStore) IncrementAttempts(_ context.Context, _ uuid.UUID) (int, error) {
	if m.incrementErr != nil {
		return 0, m.incrementErr
	}
	m.attempts++
	return m.attempts, nil
}

func (m *mockJobStore) MarkCompleted(_ context.Context, _ uuid.UUID, fileData []byte, completedAt time.Time) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	m.completed = fileData
	m.completedAt = &completedAt
	return nil
}

func (m *mockJobStore) MarkFailed(_ context.Context, _ uuid.UUID, message string, completedAt time.Time) error {
	m.failedMsg = message
	m.failedAt = &completedAt
	return nil
}

type mockObservationSource struct {
	observations []domain.WeatherObservation
	err          error
	gotUserID    string
	gotFilters   domain.ReportFilters
}

func (m *mockObservationSource) ObservationsForReport(_ context.Context, userID string, filters domain.ReportFilters) ([]domain.WeatherObservation, error) {
	m.gotUserID = userID
	m.gotFilters = filters
	return m.observations, m.err
}

type mockNotifier struct {
	notified []domain.ReportJob
	err      error
}

func (m *mockNotifier) ReportReady(_ context.Context, job domain.ReportJob) error {
	m.notified = append(m.notified, job)
	return m.err
}

// --- helpers ---

const maxAttempts = 3

func pendingJob() domain.ReportJob {
	return domain.ReportJob{
		ID:        uuid.New(),
		UserID:    "user-1",
		UserEmail: "user@example.com",
		Format:    domain.FormatCSV,
		Status:    domain.StatusPending,
		Filters:   domain.ReportFilters{PostalCode: "0131"},
		CreatedAt: time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC),
	}
}

func newWorker(jobs *mockJobStore, source *mockObservationSource, notifier *mockNotifier) *report.Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return report.NewWorker(jobs, source, notifier, maxAttempts, logger, observability.NewMetricsForTesting())
}

func someObservations() []domain.WeatherObservation {
	return []domain.WeatherObservation{
		{
			PostalCode: "01310100",
			WeatherConditions: domain.WeatherConditions{
				Temperature: 25, TempMin: 22, TempMax: 28, Description: "clear sky",
			},
			UserID:    "user-1",
			CreatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

// --- tests ---

func TestRun_Success(t *testing.T) {
	jobs := &mockJobStore{job: pendingJob()}
	source := &mockObservationSource{observations: someObservations()}
	notifier := &mockNotifier{}
	w := newWorker(jobs, source, notifier)

	err := w.Run(context.Background(), jobs.job.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, jobs.attempts)
	require.NotEmpty(t, jobs.completed, "result payload should be persisted")
	require.NotNil(t, jobs.completedAt)
	assert.Empty(t, jobs.failedMsg)

	// The filter set and owner scope are taken from the persisted job.
	assert.Equal(t, "user-1", source.gotUserID)
	assert.Equal(t, jobs.job.Filters, source.gotFilters)

	// Notification flag unset: no notification.
	assert.Empty(t, notifier.notified)
}

func TestRun_SuccessWithNotification(t *testing.T) {
	jobs := &mockJobStore{job: pendingJob()}
	jobs.job.EmailNotification = true
	source := &mockObservationSource{observations: someObservations()}
	notifier := &mockNotifier{}
	w := newWorker(jobs, source, notifier)

	require.NoError(t, w.Run(context.Background(), jobs.job.ID))

	require.Len(t, notifier.notified, 1)
	assert.Equal(t, domain.StatusCompleted, notifier.notified[0].Status)
	assert.NotEmpty(t, notifier.notified[0].FileData)
}

func TestRun_NotificationFailureDoesNotFailJob(t *testing.T) {
	jobs := &mockJobStore{job: pendingJob()}
	jobs.job.EmailNotification = true
	source := &mockObservationSource{observations: someObservations()}
	notifier := &mockNotifier{err: errors.New("smtp down")}
	w := newWorker(jobs, source, notifier)

	require.NoError(t, w.Run(context.Background(), jobs.job.ID))
	assert.NotEmpty(t, jobs.completed)
}

func TestRun_TerminalJobIsNoOp(t *testing.T) {
	for _, status := range []domain.ReportStatus{domain.StatusCompleted, domain.StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			jobs := &mockJobStore{job: pendingJob()}
			jobs.job.Status = status
			source := &mockObservationSource{}
			w := newWorker(jobs, source, &mockNotifier{})

			require.NoError(t, w.Run(context.Background(), jobs.job.ID))
			assert.Zero(t, jobs.attempts, "terminal jobs must not consume attempts")
			assert.Empty(t, jobs.completed)
			assert.Empty(t, jobs.failedMsg)
		})
	}
}

func TestRun_FailureLeavesPendingWhileAttemptsRemain(t *testing.T) {
	jobs := &mockJobStore{job: pendingJob()}
	source := &mockObservationSource{err: errors.New("db down")}
	w := newWorker(jobs, source, &mockNotifier{})

	err := w.Run(context.Background(), jobs.job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")

	// First of three attempts: no terminal write yet.
	assert.Equal(t, 1, jobs.attempts)
	assert.Empty(t, jobs.failedMsg)
	assert.Empty(t, jobs.completed)
}

func TestRun_ExhaustedAttemptsMarkFailed(t *testing.T) {
	jobs := &mockJobStore{job: pendingJob()}
	source := &mockObservationSource{err: errors.New("db down")}
	w := newWorker(jobs, source, &mockNotifier{})

	for i := 0; i < maxAttempts; i++ {
		err := w.Run(context.Background(), jobs.job.ID)
		require.Error(t, err)
	}

	assert.Equal(t, maxAttempts, jobs.attempts)
	assert.Contains(t, jobs.failedMsg, "db down")
	require.NotNil(t, jobs.failedAt)
	assert.Empty(t, jobs.completed)
}

func TestRun_EncodeFailureUsesRetryPath(t *testing.T) {
	jobs := &mockJobStore{job: pendingJob()}
	jobs.job.Format = domain.ReportFormat("doc") // unsupported, encoder will reject
	source := &mockObservationSource{observations: someObservations()}
	w := newWorker(jobs, source, &mockNotifier{})

	err := w.Run(context.Background(), jobs.job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported report format")
	assert.Empty(t, jobs.failedMsg, "first failure should leave the job pending")
}

func TestRun_PersistResultFailure(t *testing.T) {
	jobs := &mockJobStore{job: pendingJob(), completeErr: errors.New("disk full")}
	source := &mockObservationSource{observations: someObservations()}
	w := newWorker(jobs, source, &mockNotifier{})

	err := w.Run(context.Background(), jobs.job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist report result")
}

func TestRun_UnknownJob(t *testing.T) {
	jobs := &mockJobStore{job: pendingJob()}
	w := newWorker(jobs, &mockObservationSource{}, &mockNotifier{})

	err := w.Run(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrReportNotFound)
}
