// Package kafka provides the Kafka clients of the search service, backed by
// segmentio/kafka-go. The producer publishes JSON-encoded analytics batches;
// the consumer feeds entity-change payloads to a handler callback.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/careconnect/unisearch/pkg/config"
	"github.com/careconnect/unisearch/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Event is one unit of data bound for Kafka. Key selects the partition, so
// events keyed by owner keep per-owner ordering; Value is JSON-serialised.
type Event struct {
	Key   string
	Value any
}

// Producer publishes event batches to one topic.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Producer for the given topic. Writes are synchronous
// and fully acknowledged, so a returned nil means the batch is durable.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger.WithComponent("kafka-producer").With("topic", topic),
	}
}

// PublishBatch serialises the events and writes them in one call.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event.Value)
		if err != nil {
			return fmt.Errorf("marshaling event value: %w", err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.Key),
			Value: value,
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("batch publish failed", "events", len(messages), "error", err)
		return fmt.Errorf("publishing batch to kafka: %w", err)
	}
	p.logger.Debug("batch published", "events", len(messages))
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
