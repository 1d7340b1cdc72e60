package indexing

import (
	"context"

	"github.com/caselex/caselex/internal/domain"
	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/decision"
	"github.com/caselex/caselex/internal/repository/indexstore"
)

// DecisionSource streams decisions from the relational store in id order.
type DecisionSource interface {
	FetchNewerThan(ctx context.Context, afterID int64, minTextLen, limit int) ([]decision.Decision, error)
}

// BatchEmbedder vectorizes a batch of texts.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// IndexManager serves and persists per-area aggregates.
type IndexManager interface {
	Load(a area.Area) (*indexstore.AreaIndex, error)
	Persist(ai *indexstore.AreaIndex) error
}

// CheckpointStore persists the indexing high-water mark.
type CheckpointStore interface {
	Read() (int64, error)
	Write(id int64) error
}
