package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
)

// Producer publishes JSON events of type T to one topic, partitioned by the
// key function.
type Producer[T any] struct {
	writer *kafka.Writer
	key    func(T) string
	logger *slog.Logger
}

// NewProducer returns a producer for topic.
func NewProducer[T any](cfg config.KafkaConfig, topic string, key func(T) string) *Producer[T] {
	return &Producer[T]{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			MaxAttempts:  3,
			RequiredAcks: kafka.RequireOne,
		},
		key:    key,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes events in one synchronous call.
func (p *Producer[T]) Publish(ctx context.Context, events ...T) error {
	if len(events) == 0 {
		return nil
	}
	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding event %d: %w", i, err)
		}
		messages[i] = kafka.Message{Key: []byte(p.key(event)), Value: value}
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("publishing %d events: %w", len(messages), err)
	}
	p.logger.Debug("events published", "count", len(messages))
	return nil
}

// Close flushes pending writes.
func (p *Producer[T]) Close() error {
	return p.writer.Close()
}
