package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the snapshot file inside a FileStore directory.
const FileName = "index.json.zst"

// FileStore keeps the snapshot in a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Location returns the snapshot file path.
func (s *FileStore) Location() string {
	return filepath.Join(s.dir, FileName)
}

// Load reads the snapshot. A missing file yields ErrSnapshotNotFound.
func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	f, err := os.Open(s.Location())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Save writes to a temp file in the same directory, then renames it over the
// previous snapshot so readers never observe a partial file.
func (s *FileStore) Save(_ context.Context, snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, snap); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Location()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
