// Package consumer keeps the search index in step with the article store by
// applying article change events read from Kafka.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/article"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/kafka"
)

// EventType names an article change.
type EventType string

const (
	EventArticleAdded   EventType = "article.added"
	EventArticleUpdated EventType = "article.updated"
	EventArticleDeleted EventType = "article.deleted"
)

// ArticleEvent is the message published on the article events topic. The
// body is never carried; consumers fetch it from the article store.
type ArticleEvent struct {
	Type       EventType `json:"type"`
	ArticleID  int       `json:"articleId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Articles resolves event ids into article records.
type Articles interface {
	GetArticleByID(ctx context.Context, id int) (article.Article, error)
}

// Index is the subset of the search index the consumer mutates.
type Index interface {
	Update(a article.Article)
	Delete(ids ...int)
}

// IndexConsumer applies events from the article events topic to an index.
type IndexConsumer struct {
	consumer *kafka.Consumer[ArticleEvent]
}

// New returns a consumer feeding idx, resolving bodies through articles.
func New(cfg config.KafkaConfig, idx Index, articles Articles) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafka.NewConsumer(cfg, cfg.Topics.ArticleEvents, HandleEvent(idx, articles)),
	}
}

// Run blocks until ctx is cancelled.
func (ic *IndexConsumer) Run(ctx context.Context) error {
	return ic.consumer.Run(ctx)
}

// HandleEvent returns a handler applying article events to idx. Applying an
// event more than once leaves the index as applying it once. Events for
// articles that no longer exist drop the id from the index. Store errors are
// returned so the event is redelivered.
func HandleEvent(idx Index, articles Articles) kafka.Handler[ArticleEvent] {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, event ArticleEvent) error {
		log := logger.With("doc_id", event.ArticleID, "type", event.Type)

		switch event.Type {
		case EventArticleDeleted:
			idx.Delete(event.ArticleID)
		case EventArticleAdded, EventArticleUpdated:
			a, err := articles.GetArticleByID(ctx, event.ArticleID)
			if errors.Is(err, apperrors.ErrArticleNotFound) {
				log.Warn("article vanished before indexing, dropping from index")
				idx.Delete(event.ArticleID)
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetching article %d: %w", event.ArticleID, err)
			}
			// Replays and redeliveries resend added events for articles the
			// index already holds, so both kinds are applied as an upsert.
			idx.Update(a)
		default:
			log.Warn("ignoring unknown article event type")
			return nil
		}

		if !event.OccurredAt.IsZero() {
			log = log.With("lag", time.Since(event.OccurredAt).Round(time.Millisecond))
		}
		log.Info("article event applied")
		return nil
	}
}

// Publisher is the producing side of the article events topic, used by
// tooling that writes articles.
type Publisher struct {
	producer *kafka.Producer[ArticleEvent]
}

// NewPublisher returns a publisher for the article events topic.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	return &Publisher{
		producer: kafka.NewProducer(cfg, cfg.Topics.ArticleEvents, func(e ArticleEvent) string {
			return strconv.Itoa(e.ArticleID)
		}),
	}
}

// Publish stamps and sends events, keyed by article id.
func (p *Publisher) Publish(ctx context.Context, events ...ArticleEvent) error {
	now := time.Now().UTC()
	for i := range events {
		if events[i].OccurredAt.IsZero() {
			events[i].OccurredAt = now
		}
	}
	return p.producer.Publish(ctx, events...)
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}
