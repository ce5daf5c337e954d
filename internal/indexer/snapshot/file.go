package snapshot

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/article-search/pkg/errors"
)

// MagicBytes identifies a valid .snap file.
const (
	MagicBytes    uint32 = 0x53504958
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
)

// FileHeader is the fixed-size header written at the start of every snapshot
// file, followed by PayloadSize bytes of JSON record.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	PayloadSize uint64
	Checksum    uint32
	CreatedAt   int64
}

// FileStore keeps one file per record id in a directory. Writes go to a .tmp
// file that is synced and renamed into place.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id int) string {
	return filepath.Join(s.dir, fmt.Sprintf("index-%d.snap", id))
}

// Save atomically replaces the record's file.
func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	payload, err := Marshal(rec)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	finalPath := s.path(rec.ID)
	tmpPath := finalPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(payload)))
	binary.LittleEndian.PutUint32(header[16:20], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint64(header[20:28], uint64(time.Now().Unix()))

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	return nil
}

// Load reads and verifies the record's file.
func (s *FileStore) Load(ctx context.Context, id int) (*Record, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	header, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	payload := data[HeaderSize:]
	if uint64(len(payload)) != header.PayloadSize {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d",
			apperrors.ErrCorruptSnapshot, len(payload), header.PayloadSize)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != header.Checksum {
		return nil, fmt.Errorf("%w: checksum %08x, header says %08x",
			apperrors.ErrCorruptSnapshot, sum, header.Checksum)
	}
	rec, err := Unmarshal(payload)
	if err != nil {
		return nil, err
	}
	if rec.ID != id {
		return nil, fmt.Errorf("%w: file for record %d holds record %d", apperrors.ErrCorruptSnapshot, id, rec.ID)
	}
	return rec, nil
}

// Close is a no-op; files are not held open between calls.
func (s *FileStore) Close() error {
	return nil
}

func parseHeader(data []byte) (FileHeader, error) {
	if len(data) < HeaderSize {
		return FileHeader{}, fmt.Errorf("%w: file shorter than header", apperrors.ErrCorruptSnapshot)
	}
	h := FileHeader{
		Magic:       binary.LittleEndian.Uint32(data[0:4]),
		Version:     binary.LittleEndian.Uint32(data[4:8]),
		PayloadSize: binary.LittleEndian.Uint64(data[8:16]),
		Checksum:    binary.LittleEndian.Uint32(data[16:20]),
		CreatedAt:   int64(binary.LittleEndian.Uint64(data[20:28])),
	}
	if h.Magic != MagicBytes {
		return h, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrCorruptSnapshot, h.Magic)
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("%w: unsupported format version %d", apperrors.ErrCorruptSnapshot, h.Version)
	}
	return h, nil
}
