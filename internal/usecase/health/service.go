package health

import (
	"context"

	"github.com/caselex/caselex/internal/domain/area"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Searches may still serve in
	// keyword-only mode when only the embedding provider is down.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results and per-area index sizes.
type Report struct {
	Status    Status
	Checks    map[string]CheckResult
	AreaSizes map[area.Area]int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	cache     DBPinger
	indexes   IndexInspector
}

// New creates a Service. embedding and cache can be nil.
func New(db DBPinger, embedding EmbeddingChecker, cache DBPinger, indexes IndexInspector) *Service {
	return &Service{db: db, embedding: embedding, cache: cache, indexes: indexes}
}

// Check runs health checks against all components and reports how many
// decisions each persisted area holds.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = CheckError
		} else {
			checks["database"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	sizes := make(map[area.Area]int)
	areas, err := s.indexes.Areas()
	if err != nil {
		checks["indexes"] = CheckError
	} else {
		checks["indexes"] = CheckOK
		for _, a := range areas {
			ai, err := s.indexes.Load(a)
			if err != nil {
				checks["indexes"] = CheckError
				break
			}
			sizes[a] = ai.Len()
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, AreaSizes: sizes}
}
