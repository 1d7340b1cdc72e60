package indexstore

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/caselex/caselex/internal/domain/area"
)

// Manager serves area aggregates from a bounded in-memory cache backed by
// the file store. Load is idempotent; concurrent loads of the same area
// share one aggregate. Eviction only drops the cache reference, callers
// holding the pointer keep a consistent aggregate.
type Manager struct {
	store *Store
	dim   int
	log   *zap.Logger

	mu    sync.Mutex
	cache *lru.Cache[area.Area, *AreaIndex]
}

// NewManager creates a manager keeping at most capacity aggregates in memory.
func NewManager(store *Store, dim, capacity int, log *zap.Logger) (*Manager, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	cache, err := lru.NewWithEvict[area.Area, *AreaIndex](capacity, func(a area.Area, _ *AreaIndex) {
		log.Debug("area index evicted from cache", zap.String("area", string(a)))
	})
	if err != nil {
		return nil, fmt.Errorf("create area cache: %w", err)
	}
	return &Manager{store: store, dim: dim, log: log, cache: cache}, nil
}

// Load returns the aggregate for an area, reading it from disk on a cache
// miss. Absent areas come back as empty aggregates.
func (m *Manager) Load(a area.Area) (*AreaIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ai, ok := m.cache.Get(a); ok {
		return ai, nil
	}
	ai, err := m.store.Load(a, m.dim)
	if err != nil {
		return nil, err
	}
	m.cache.Add(a, ai)
	m.log.Debug("area index loaded",
		zap.String("area", string(a)),
		zap.Int("size", ai.Len()))
	return ai, nil
}

// Persist publishes the aggregate's current state to disk.
func (m *Manager) Persist(ai *AreaIndex) error {
	return m.store.Persist(ai)
}

// Areas lists persisted areas in lexicographic order.
func (m *Manager) Areas() ([]area.Area, error) {
	return m.store.Areas()
}
