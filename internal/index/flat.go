package index

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/caselex/caselex/internal/domain"
)

// Match is a single nearest-neighbor hit: the position of the vector in
// insertion order and its Euclidean distance to the query.
type Match struct {
	Position int
	Distance float32
}

// Flat is a brute-force Euclidean nearest-neighbor index. Vectors are
// stored in insertion order; positions are stable for the lifetime of the
// index and line up one-to-one with an external record mapping.
//
// Safe for concurrent reads; writes take the exclusive lock.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
}

// NewFlat creates an empty index for vectors of the given dimensionality.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Dim returns the vector dimensionality.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Append adds a vector and returns its position.
func (f *Flat) Append(vec []float32) (int, error) {
	if len(vec) != f.dim {
		return 0, fmt.Errorf("%w: got %d, index expects %d", domain.ErrVectorDimMismatch, len(vec), f.dim)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = append(f.vectors, vec)
	return len(f.vectors) - 1, nil
}

// At returns the vector stored at position (shared slice, callers must not
// mutate it).
func (f *Flat) At(pos int) ([]float32, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if pos < 0 || pos >= len(f.vectors) {
		return nil, fmt.Errorf("position %d out of range [0,%d)", pos, len(f.vectors))
	}
	return f.vectors[pos], nil
}

// Search returns up to k nearest vectors by Euclidean distance, closest
// first. Ties break on position so the ordering is deterministic.
func (f *Flat) Search(query []float32, k int) ([]Match, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: got %d, index expects %d", domain.ErrVectorDimMismatch, len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	matches := make([]Match, len(f.vectors))
	for i, v := range f.vectors {
		matches[i] = Match{Position: i, Distance: euclideanDistance(query, v)}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Position < matches[j].Position
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Vectors returns a copy of the stored vectors in insertion order.
func (f *Flat) Vectors() [][]float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([][]float32, len(f.vectors))
	copy(out, f.vectors)
	return out
}

func euclideanDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return float32(math.Sqrt(float64(sum)))
}
