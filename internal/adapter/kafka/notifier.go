package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ozonelab/o3skim/internal/config"
	"github.com/ozonelab/o3skim/internal/pipeline"
)

// Notifier publishes skim reports to a Kafka topic.
// It implements pipeline.Notifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured report topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// NotifySkim serializes and publishes one model's skim report. Messages are
// keyed by <source>_<model> so per-model ordering is preserved per partition.
func (n *Notifier) NotifySkim(ctx context.Context, report *pipeline.SkimReport) error {
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, msg)
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeReport marshals a skim report into a Kafka message.
func serializeReport(report *pipeline.SkimReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize skim report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.Source + "_" + report.Model),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(report.Source)},
			{Key: "groupby", Value: []byte(report.GroupBy)},
		},
	}, nil
}
