package search

import (
	"context"

	"github.com/caselex/caselex/internal/domain"
	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/repository/indexstore"
)

// IndexProvider serves per-area aggregates and lists persisted areas.
type IndexProvider interface {
	Load(a area.Area) (*indexstore.AreaIndex, error)
	Areas() ([]area.Area, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
