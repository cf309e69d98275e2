package report

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/weather-lookup-service/internal/domain"
)

// LogNotifier satisfies Notifier by logging. Mail delivery belongs to an
// external collaborator; deployments with one swap in their own Notifier.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a logging Notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ReportReady(_ context.Context, job domain.ReportJob) error {
	n.logger.Info("report ready notification",
		"job_id", job.ID, "user_email", job.UserEmail, "format", job.Format, "bytes", job.FileSize())
	return nil
}
