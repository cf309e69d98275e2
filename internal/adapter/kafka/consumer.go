package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-lookup-service/internal/config"
	"github.com/couchcryptid/weather-lookup-service/internal/observability"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// JobRunner executes one report job to a terminal or retriable state.
type JobRunner interface {
	Run(ctx context.Context, jobID uuid.UUID) error
}

// Consumer reads report job messages from the group topic and drives the
// runner. Messages are committed after processing, so delivery is
// at-least-once; the runner's own state machine makes redelivery safe.
type Consumer struct {
	reader         *kafkago.Reader
	runner         JobRunner
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// NewConsumer creates a group consumer for the report topic.
func NewConsumer(cfg *config.Config, runner JobRunner, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaReportTopic,
		GroupID: cfg.KafkaGroupID,
	})
	return &Consumer{
		reader:         r,
		runner:         runner,
		maxAttempts:    cfg.ReportMaxAttempts,
		initialBackoff: cfg.ReportRetryInitialBackoff,
		maxBackoff:     cfg.ReportRetryMaxBackoff,
		logger:         logger,
		metrics:        metrics,
	}
}

// Consume processes messages until the context is cancelled.
func (c *Consumer) Consume(ctx context.Context) error {
	c.metrics.WorkerRunning.Set(1)
	defer c.metrics.WorkerRunning.Set(0)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

// process runs the job, retrying in place with doubling backoff. Once the
// in-process budget is spent the message is committed anyway: the runner has
// already recorded the failure durably, and a pending job stuck behind a
// transient outage is picked up again on redelivery.
func (c *Consumer) process(ctx context.Context, msg kafkago.Message) {
	var jm jobMessage
	if err := json.Unmarshal(msg.Value, &jm); err != nil {
		c.logger.Error("malformed job message, skipping",
			"offset", msg.Offset, "error", err)
		return
	}

	backoff := c.initialBackoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.runner.Run(ctx, jm.JobID)
		if err == nil {
			return
		}
		c.logger.Warn("report job run failed",
			"job_id", jm.JobID, "attempt", attempt, "error", err)

		if attempt == c.maxAttempts || ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
