package search

import (
	"fmt"

	"github.com/caselex/caselex/internal/domain"
	"github.com/caselex/caselex/internal/domain/area"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed query text length.
	MaxQueryLength  = 4096
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Query is a validated search request over the decision indexes.
type Query struct {
	text     string
	areas    []area.Area
	page     int
	pageSize int
}

// NewQuery validates and normalizes search parameters.
// An empty areas slice means "all persisted areas, up to the engine's cap".
// Defaults: page=1, pageSize=20.
func NewQuery(text string, areas []area.Area, page, pageSize int) (Query, error) {
	if text == "" {
		return Query{}, fmt.Errorf("%w: query text is required", domain.ErrInvalidQuery)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	for _, a := range areas {
		if !area.Valid(a) {
			return Query{}, fmt.Errorf("%w: invalid area %q", domain.ErrInvalidQuery, a)
		}
	}
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return Query{
		text:     text,
		areas:    areas,
		page:     page,
		pageSize: pageSize,
	}, nil
}

// Text returns the query text.
func (q *Query) Text() string { return q.text }

// Areas returns the caller-requested areas (empty means all).
func (q *Query) Areas() []area.Area { return q.areas }

// Page returns the 1-based result page.
func (q *Query) Page() int { return q.page }

// PageSize returns the page size.
func (q *Query) PageSize() int { return q.pageSize }

// Offset returns the global result offset of the page start.
func (q *Query) Offset() int { return (q.page - 1) * q.pageSize }
