//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	kafkaadapter "github.com/couchcryptid/weather-lookup-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-lookup-service/internal/config"
	"github.com/couchcryptid/weather-lookup-service/internal/domain"
	"github.com/couchcryptid/weather-lookup-service/internal/observability"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testReportTopic = "report-jobs-test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// recordingRunner counts runs per job and can fail the first N attempts.
type recordingRunner struct {
	mu           sync.Mutex
	runs         map[uuid.UUID]int
	failuresLeft int
	done         chan uuid.UUID
}

func newRecordingRunner(failures int) *recordingRunner {
	return &recordingRunner{
		runs:         make(map[uuid.UUID]int),
		failuresLeft: failures,
		done:         make(chan uuid.UUID, 1),
	}
}

func (r *recordingRunner) Run(_ context.Context, jobID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[jobID]++
	if r.failuresLeft > 0 {
		r.failuresLeft--
		return fmt.Errorf("transient failure for %s", jobID)
	}
	select {
	case r.done <- jobID:
	default:
	}
	return nil
}

func (r *recordingRunner) runCount(jobID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[jobID]
}

// TestReportQueueRoundTrip verifies that an enqueued job message reaches the
// consumer, survives a transient run failure through the in-process retry,
// and is committed afterwards.
func TestReportQueueRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	cfg := &config.Config{
		KafkaBrokers:              []string{broker},
		KafkaReportTopic:          testReportTopic,
		KafkaGroupID:              fmt.Sprintf("test-worker-%d", time.Now().UnixNano()),
		ReportMaxAttempts:         3,
		ReportRetryInitialBackoff: 50 * time.Millisecond,
		ReportRetryMaxBackoff:     200 * time.Millisecond,
	}

	job := domain.NewReportJob("user-1", "user@example.com", domain.FormatCSV, domain.ReportFilters{}, false)

	enqueuer := kafkaadapter.NewEnqueuer(cfg, discardLogger())
	t.Cleanup(func() { _ = enqueuer.Close() })
	require.NoError(t, enqueuer.Enqueue(ctx, job))

	// Fail the first run so the doubling-backoff retry path is exercised.
	runner := newRecordingRunner(1)
	consumer := kafkaadapter.NewConsumer(cfg, runner, discardLogger(), observability.NewMetricsForTesting())
	t.Cleanup(func() { _ = consumer.Close() })

	consumeCtx, stopConsume := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Consume(consumeCtx) }()

	select {
	case got := <-runner.done:
		assert.Equal(t, job.ID, got)
	case <-ctx.Done():
		t.Fatal("timed out waiting for the job to be processed")
	}

	stopConsume()
	require.NoError(t, <-errCh)

	assert.Equal(t, 2, runner.runCount(job.ID), "one failed run plus one successful retry")
}
