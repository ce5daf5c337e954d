// Package kafka carries typed JSON events over segmentio/kafka-go. Producers
// key each event so one article's changes stay ordered within a partition;
// consumers decode, hand the event to a Handler and commit afterwards.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/resilience"
)

// Handler applies one decoded event. An error asks for redelivery.
type Handler[T any] func(ctx context.Context, event T) error

const fetchBackoff = time.Second

// Consumer reads one topic as a member of the configured consumer group.
type Consumer[T any] struct {
	reader  *kafka.Reader
	handler Handler[T]
	logger  *slog.Logger

	// Redelivery bounds how long a failing event is retried before it is
	// committed anyway.
	Redelivery resilience.RetryPolicy
}

// NewConsumer returns a consumer for topic. A group with no committed offset
// starts from the oldest retained event, since a missed change would leave
// the index stale until the next rebuild.
func NewConsumer[T any](cfg config.KafkaConfig, topic string, handler Handler[T]) *Consumer[T] {
	return &Consumer[T]{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1,
			MaxBytes:    1e6,
			MaxWait:     500 * time.Millisecond,
			StartOffset: kafka.FirstOffset,
		}),
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		Redelivery: resilience.RetryPolicy{
			Attempts:   5,
			Backoff:    200 * time.Millisecond,
			MaxBackoff: 5 * time.Second,
		},
	}
}

// Run consumes until ctx is cancelled, then closes the reader. Messages that
// do not decode are committed and skipped, and so is an event whose handler
// still fails once Redelivery is exhausted: blocking the partition on it
// would stall every later change.
func (c *Consumer[T]) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping")
				return nil
			}
			c.logger.Error("fetch failed", "error", err, "backoff", fetchBackoff)
			select {
			case <-time.After(fetchBackoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		log := c.logger.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
		event, err := decode[T](msg.Value)
		if err != nil {
			log.Error("dropping undecodable message", "error", err)
		} else if err := resilience.Retry(ctx, "apply event", c.Redelivery, func(ctx context.Context) error {
			return c.handler(ctx, event)
		}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("dropping event after redelivery", "error", err)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error("commit failed", "error", err)
		}
	}
}

func decode[T any](value []byte) (T, error) {
	var event T
	if err := json.Unmarshal(value, &event); err != nil {
		return event, fmt.Errorf("decoding %d-byte message: %w", len(value), err)
	}
	return event, nil
}
