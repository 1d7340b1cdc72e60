package health

import (
	"context"

	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/repository/indexstore"
)

// DBPinger checks decision-store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexInspector lists persisted areas and loads their aggregates.
type IndexInspector interface {
	Areas() ([]area.Area, error)
	Load(a area.Area) (*indexstore.AreaIndex, error)
}
