package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/article-search/pkg/postgres"
)

const recordSchema = `CREATE TABLE IF NOT EXISTS search_index_records (
	id         INTEGER PRIMARY KEY,
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps records in the search_index_records table.
type PostgresStore struct {
	client *postgres.Client
}

// NewPostgresStore creates the table if it does not exist.
func NewPostgresStore(ctx context.Context, client *postgres.Client) (*PostgresStore, error) {
	if err := client.Migrate(ctx, "search_index_records", recordSchema); err != nil {
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}
	return &PostgresStore{client: client}, nil
}

// Save upserts the record in a transaction.
func (s *PostgresStore) Save(ctx context.Context, rec *Record) error {
	data, err := Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO search_index_records (id, data, updated_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
			rec.ID, string(data),
		)
		if err != nil {
			return fmt.Errorf("upserting record %d: %w", rec.ID, err)
		}
		return nil
	})
}

// Load fetches the record with the given id.
func (s *PostgresStore) Load(ctx context.Context, id int) (*Record, error) {
	var data []byte
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT data FROM search_index_records WHERE id = $1`, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("reading record %d: %w", id, err)
	}
	return Unmarshal(data)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.client.Close()
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
