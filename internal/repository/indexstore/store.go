package indexstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/caselex/caselex/internal/domain/area"
)

const artifactExt = ".idx"

// Store persists area aggregates as single files under a directory,
// one artifact per area. Writes go through a temp file and rename so a
// concurrent reader never observes a torn artifact.
type Store struct {
	dir string
}

// NewStore creates a file-backed aggregate store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("index dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Load reads the aggregate for an area. A missing artifact yields an
// empty aggregate; a malformed one fails with ErrCorruptIndex.
func (s *Store) Load(a area.Area, dim int) (*AreaIndex, error) {
	bs, err := os.ReadFile(s.path(a))
	if err != nil {
		if os.IsNotExist(err) {
			return NewAreaIndex(a, dim)
		}
		return nil, fmt.Errorf("read index %s: %w", a, err)
	}
	return decodeAggregate(a, dim, bs)
}

// Persist atomically publishes the aggregate's current state.
func (s *Store) Persist(ai *AreaIndex) error {
	bs := encodeAggregate(ai)

	tmp, err := os.CreateTemp(s.dir, string(ai.Area())+".tmp-*")
	if err != nil {
		return fmt.Errorf("persist %s: %w", ai.Area(), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(bs); err != nil {
		tmp.Close()
		return fmt.Errorf("persist %s: %w", ai.Area(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("persist %s: %w", ai.Area(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist %s: %w", ai.Area(), err)
	}
	if err := os.Rename(tmpName, s.path(ai.Area())); err != nil {
		return fmt.Errorf("persist %s: %w", ai.Area(), err)
	}
	return nil
}

// Areas lists persisted areas in lexicographic order.
func (s *Store) Areas() ([]area.Area, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list index dir: %w", err)
	}
	var out []area.Area
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), artifactExt) {
			continue
		}
		out = append(out, area.Area(strings.TrimSuffix(e.Name(), artifactExt)))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) path(a area.Area) string {
	return filepath.Join(s.dir, string(a)+artifactExt)
}
