package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexNotFound signals that a legal area has no persisted index yet.
	// Callers treat this as zero results, not a failure.
	ErrIndexNotFound = errors.New("index not found")
	// ErrCorruptIndex signals a mismatched or unreadable index/mapping pair.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidQuery signals an invalid search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrIndexerBusy signals an indexing run overlapping another in the same process.
	ErrIndexerBusy = errors.New("indexer already running")
)

// CorruptIndexError wraps ErrCorruptIndex with the affected area and detail.
type CorruptIndexError struct {
	Area   string
	Detail string
}

func (e *CorruptIndexError) Error() string {
	return fmt.Sprintf("%s: area %q: %s", ErrCorruptIndex.Error(), e.Area, e.Detail)
}

func (e *CorruptIndexError) Unwrap() error { return ErrCorruptIndex }

// NewCorruptIndex creates a corrupt index error for an area.
func NewCorruptIndex(area, detail string) error {
	return &CorruptIndexError{Area: area, Detail: detail}
}
