//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/storm-data-pros/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-pros/internal/domain"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("pros-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	require.NoError(t, kafka.CreateTopics([]string{broker}, 1, topic), "create topic %s", topic)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loadReferenceJobs reads the reference job fixture from data/mock.
func loadReferenceJobs(t *testing.T) []domain.GridJob {
	t.Helper()
	path := filepath.Join("..", "..", "data", "mock", "reference_jobs.json")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var jobs []domain.GridJob
	require.NoError(t, json.Unmarshal(data, &jobs))
	require.NotEmpty(t, jobs)
	return jobs
}
