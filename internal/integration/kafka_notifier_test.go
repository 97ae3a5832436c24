//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/ozonelab/o3skim/internal/adapter/kafka"
	"github.com/ozonelab/o3skim/internal/config"
	"github.com/ozonelab/o3skim/internal/pipeline"
)

const testReportTopic = "test-skim-reports"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.1",
		tckafka.WithClusterID("o3skim-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial kafka broker")
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestNotifierPublishesReport verifies the adapter layer against real Kafka:
// a skim report published through kafka.Notifier arrives on the report topic
// with the expected key, headers, and payload.
func TestNotifierPublishesReport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testReportTopic,
	}

	notifier := kafka.NewNotifier(cfg, discardLogger())
	t.Cleanup(func() { _ = notifier.Close() })

	skimmedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	report := &pipeline.SkimReport{
		Source:    "SourceA",
		Model:     "ModelX",
		GroupBy:   "year",
		OutputDir: "/out/SourceA_ModelX",
		Files:     []string{"tco3_zm_2000-2001.nc", "tco3_zm_2001-2002.nc"},
		SkimmedAt: skimmedAt,
	}
	require.NoError(t, notifier.NotifySkim(ctx, report))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testReportTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from report topic")

	assert.Equal(t, "SourceA_ModelX", string(msg.Key))

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "SourceA", headers["source"])
	assert.Equal(t, "year", headers["groupby"])

	var got pipeline.SkimReport
	require.NoError(t, json.Unmarshal(msg.Value, &got), "unmarshal report")
	assert.Equal(t, "ModelX", got.Model)
	assert.Equal(t, []string{"tco3_zm_2000-2001.nc", "tco3_zm_2001-2002.nc"}, got.Files)
	assert.True(t, got.SkimmedAt.Equal(skimmedAt))
	assert.Empty(t, got.Failed)
}
