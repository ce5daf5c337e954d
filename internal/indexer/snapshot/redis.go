package snapshot

import (
	"context"
	"fmt"
	"strconv"

	pkgredis "github.com/Adithya-Monish-Kumar-K/article-search/pkg/redis"
)

// RedisStore keeps each record under prefix+id as a plain string value with
// no expiry.
type RedisStore struct {
	client *pkgredis.Client
	prefix string
}

// NewRedisStore wraps an already connected client.
func NewRedisStore(client *pkgredis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, prefix: keyPrefix}
}

func (s *RedisStore) key(id int) string {
	return s.prefix + strconv.Itoa(id)
}

// Save upserts the record.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	data, err := Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Put(ctx, s.key(rec.ID), data); err != nil {
		return fmt.Errorf("writing record %d to redis: %w", rec.ID, err)
	}
	return nil
}

// Load fetches the record with the given id.
func (s *RedisStore) Load(ctx context.Context, id int) (*Record, error) {
	data, found, err := s.client.Get(ctx, s.key(id))
	if err != nil {
		return nil, fmt.Errorf("reading record %d from redis: %w", id, err)
	}
	if !found {
		return nil, notFound(id)
	}
	return Unmarshal(data)
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
