package indexstore

import (
	"fmt"
	"sync"

	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/decision"
	"github.com/caselex/caselex/internal/index"
)

// Hit is a nearest-neighbor match resolved to its decision record.
type Hit struct {
	Decision decision.Decision
	Distance float32
}

// AreaIndex is the per-area aggregate: a flat vector index plus the
// parallel decision mapping. The two always grow together; position i of
// the index corresponds to mapping[i].
type AreaIndex struct {
	mu      sync.RWMutex
	area    area.Area
	index   *index.Flat
	mapping []decision.Decision
	seen    map[int64]struct{}
}

// NewAreaIndex creates an empty aggregate for the given area and
// vector dimensionality.
func NewAreaIndex(a area.Area, dim int) (*AreaIndex, error) {
	if !area.Valid(a) {
		return nil, fmt.Errorf("invalid area name %q", a)
	}
	idx, err := index.NewFlat(dim)
	if err != nil {
		return nil, err
	}
	return &AreaIndex{
		area:  a,
		index: idx,
		seen:  make(map[int64]struct{}),
	}, nil
}

// Area returns the aggregate's legal area.
func (ai *AreaIndex) Area() area.Area { return ai.area }

// Dim returns the vector dimensionality.
func (ai *AreaIndex) Dim() int { return ai.index.Dim() }

// Len returns the number of indexed decisions.
func (ai *AreaIndex) Len() int {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	return len(ai.mapping)
}

// Contains reports whether the decision id is already indexed.
func (ai *AreaIndex) Contains(id int64) bool {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	_, ok := ai.seen[id]
	return ok
}

// Append adds a vector and its decision to the aggregate. Decisions
// already present (by id) are skipped, which keeps checkpoint retries
// idempotent. Returns true when the decision was added.
func (ai *AreaIndex) Append(vec []float32, dec decision.Decision) (bool, error) {
	ai.mu.Lock()
	defer ai.mu.Unlock()

	if _, ok := ai.seen[dec.ID()]; ok {
		return false, nil
	}
	if _, err := ai.index.Append(vec); err != nil {
		return false, fmt.Errorf("area %s: %w", ai.area, err)
	}
	ai.mapping = append(ai.mapping, dec)
	ai.seen[dec.ID()] = struct{}{}
	return true, nil
}

// Search returns up to k nearest decisions to the query vector.
func (ai *AreaIndex) Search(query []float32, k int) ([]Hit, error) {
	ai.mu.RLock()
	defer ai.mu.RUnlock()

	matches, err := ai.index.Search(query, k)
	if err != nil {
		return nil, fmt.Errorf("area %s: %w", ai.area, err)
	}
	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{Decision: ai.mapping[m.Position], Distance: m.Distance}
	}
	return hits, nil
}

// Decisions returns a snapshot copy of the record mapping in index order.
// Used by the keyword-only degradation path.
func (ai *AreaIndex) Decisions() []decision.Decision {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	out := make([]decision.Decision, len(ai.mapping))
	copy(out, ai.mapping)
	return out
}

// snapshot returns aligned copies of vectors and mapping for serialization.
func (ai *AreaIndex) snapshot() ([][]float32, []decision.Decision) {
	ai.mu.RLock()
	defer ai.mu.RUnlock()
	vecs := ai.index.Vectors()
	mapping := make([]decision.Decision, len(ai.mapping))
	copy(mapping, ai.mapping)
	return vecs, mapping
}
