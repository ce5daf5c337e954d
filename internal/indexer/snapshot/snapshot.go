// Package snapshot persists the serialized search index as a single opaque
// record. Backends share the JSON record shape
//
//	{"id": 1, "keys": [...], "postings": [...], "children": [...]}
//
// so a snapshot written by one backend can be copied verbatim into another.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/article-search/internal/indexer/radix"
	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
)

// Record is the persisted form of the index, keyed by its own ID.
type Record struct {
	ID int `json:"id"`
	radix.Serialized
}

// Store loads and upserts index records. Load returns an error wrapping
// apperrors.ErrSnapshotNotFound when no record with that id exists.
type Store interface {
	Load(ctx context.Context, id int) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Close() error
}

// Pinger is implemented by stores backed by a server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Marshal encodes rec as JSON.
func Marshal(rec *Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshaling index record %d: %w", rec.ID, err)
	}
	return data, nil
}

// Unmarshal decodes a JSON record. Undecodable input is reported as
// apperrors.ErrCorruptSnapshot.
func Unmarshal(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decoding record: %v", apperrors.ErrCorruptSnapshot, err)
	}
	return &rec, nil
}

func notFound(id int) error {
	return fmt.Errorf("%w: record %d", apperrors.ErrSnapshotNotFound, id)
}
