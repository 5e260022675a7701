package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/pool-weather-logger/internal/config"
	"github.com/couchcryptid/pool-weather-logger/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces committed log records to a Kafka topic.
// It implements pipeline.RecordPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured record topic.
// Records are written one at a time, so batching is effectively disabled.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchSize:              1,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	logger.Info("record publisher enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes rec and writes it to the topic. Records for the same
// sensor share a key and therefore a partition.
func (p *Publisher) Publish(ctx context.Context, rec domain.LogRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish record: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a LogRecord into a Kafka message.
func serializeToMessage(rec domain.LogRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize log record: %w", err)
	}
	sensorID := strconv.FormatInt(rec.SensorID, 10)
	return kafkago.Message{
		Key:   []byte(sensorID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "sensor_id", Value: []byte(sensorID)},
			{Key: "recorded_at", Value: []byte(rec.RecordedAt.Format(time.RFC3339))},
		},
	}, nil
}
