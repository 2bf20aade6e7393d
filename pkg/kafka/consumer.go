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

// fetchBackoff spaces out retries when the broker is unreachable, so a down
// broker does not turn the consume loop into a busy spin.
const fetchBackoff = time.Second

// MessageHandler processes one message. A nil return commits the offset; an
// error leaves it uncommitted for redelivery.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer reads a topic within a consumer group and dispatches each message
// to its handler.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *slog.Logger
}

// NewConsumer creates a Consumer starting at the latest offset: the service
// only cares about mutations that happen while it is running, since every
// build reads the datastore directly anyway.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.ConsumerGroup,
			Topic:       topic,
			StartOffset: kafka.LastOffset,
		}),
		handler: handler,
		logger:  logger.WithComponent("kafka-consumer").With("topic", topic),
	}
}

// Start runs the consume loop until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("fetch failed", "error", err)
			select {
			case <-time.After(fetchBackoff):
				continue
			case <-ctx.Done():
				return c.reader.Close()
			}
		}

		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("message handling failed",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
