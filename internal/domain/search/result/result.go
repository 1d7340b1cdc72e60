package result

import (
	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/decision"
)

// Result is a single scored search hit. It carries the decision snapshot
// together with every score component so rankings stay auditable.
type Result struct {
	dec       decision.Decision
	area      area.Area
	combined  float64
	distance  float64
	relevance float64
}

// New creates a search result.
func New(dec decision.Decision, a area.Area, combined, distance, relevance float64) Result {
	return Result{
		dec:       dec,
		area:      a,
		combined:  combined,
		distance:  distance,
		relevance: relevance,
	}
}

// Decision returns the matched decision snapshot.
func (r *Result) Decision() decision.Decision { return r.dec }

// Area returns the legal area the hit came from.
func (r *Result) Area() area.Area { return r.area }

// Combined returns the final ranking score.
func (r *Result) Combined() float64 { return r.combined }

// Distance returns the raw vector distance to the query embedding.
func (r *Result) Distance() float64 { return r.distance }

// Relevance returns the keyword relevance sub-score.
func (r *Result) Relevance() float64 { return r.relevance }
