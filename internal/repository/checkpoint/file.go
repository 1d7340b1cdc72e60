// Package checkpoint persists the indexer's high-water mark: the highest
// decision id whose batch fully reached the index store.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileStore keeps the checkpoint in a single text file. Writes are atomic
// via temp file and rename; a missing file reads as zero so a fresh
// deployment starts from the beginning.
type FileStore struct {
	path string
}

// NewFileStore creates a checkpoint store at the given path.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Read returns the stored checkpoint, or 0 when none exists yet.
func (s *FileStore) Read() (int64, error) {
	bs, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(bs)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %q: %w", strings.TrimSpace(string(bs)), err)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative checkpoint %d", v)
	}
	return v, nil
}

// Write atomically replaces the checkpoint.
func (s *FileStore) Write(id int64) error {
	if id < 0 {
		return fmt.Errorf("checkpoint must be non-negative, got %d", id)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(strconv.FormatInt(id, 10) + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
