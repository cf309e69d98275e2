// Package kafka carries report job hand-off between the API and the
// worker over a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/config"
	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// jobMessage is the wire format for an enqueued report job. The worker
// reloads the job from the store by ID; the rest is diagnostic.
type jobMessage struct {
	JobID       uuid.UUID `json:"job_id"`
	UserID      string    `json:"user_id"`
	Format      string    `json:"format"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Enqueuer produces report job messages to the configured topic.
type Enqueuer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewEnqueuer creates a Kafka producer for the report topic.
func NewEnqueuer(cfg *config.Config, logger *slog.Logger) *Enqueuer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Enqueuer{writer: w, logger: logger}
}

// Enqueue publishes the job for asynchronous generation. The job row must
// already be persisted; a consumer may pick the message up immediately.
func (e *Enqueuer) Enqueue(ctx context.Context, job domain.ReportJob) error {
	msg, err := serializeJob(job)
	if err != nil {
		return err
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("enqueue report job %s: %w", job.ID, err)
	}
	e.logger.Info("report job enqueued", "job_id", job.ID, "format", job.Format)
	return nil
}

func (e *Enqueuer) Close() error {
	return e.writer.Close()
}

// serializeJob marshals a report job into a Kafka message. Keying by job ID
// keeps redeliveries of the same job on one partition.
func serializeJob(job domain.ReportJob) (kafkago.Message, error) {
	data, err := json.Marshal(jobMessage{
		JobID:       job.ID,
		UserID:      job.UserID,
		Format:      string(job.Format),
		SubmittedAt: job.CreatedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report job: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(job.ID.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "format", Value: []byte(job.Format)},
			{Key: "submitted_at", Value: []byte(job.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
