package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/buntdb"
)

// BuntStore keeps records in an embedded buntdb file, the default for a
// single-user reader. Path ":memory:" keeps everything in memory.
type BuntStore struct {
	db     *buntdb.DB
	prefix string
}

// OpenBunt opens (or creates) the database at path.
func OpenBunt(path, keyPrefix string) (*BuntStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening buntdb %s: %w", path, err)
	}
	return &BuntStore{db: db, prefix: keyPrefix}, nil
}

func (s *BuntStore) key(id int) string {
	return s.prefix + strconv.Itoa(id)
}

// Save upserts the record.
func (s *BuntStore) Save(ctx context.Context, rec *Record) error {
	data, err := Marshal(rec)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err = s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(s.key(rec.ID), string(data), nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("writing record %d to buntdb: %w", rec.ID, err)
	}
	return nil
}

// Load fetches the record with the given id.
func (s *BuntStore) Load(ctx context.Context, id int) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(s.key(id))
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("reading record %d from buntdb: %w", id, err)
	}
	return Unmarshal([]byte(value))
}

// Close closes the database file.
func (s *BuntStore) Close() error {
	return s.db.Close()
}
