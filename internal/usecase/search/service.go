package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/caselex/caselex/internal/domain"
	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/search"
	"github.com/caselex/caselex/internal/domain/search/result"
	"github.com/caselex/caselex/internal/metrics"
	"github.com/caselex/caselex/internal/repository/indexstore"
)

// Config holds query-engine tuning knobs.
type Config struct {
	// TopKPerArea is the nearest-neighbor candidate count per area.
	TopKPerArea int
	// MaxAreas caps the fan-out when the caller names no areas.
	MaxAreas int
	// VectorWeight and KeywordWeight combine the two score components.
	VectorWeight  float64
	KeywordWeight float64
	// MinRelevance drops candidates below this keyword relevance.
	MinRelevance float64
	// Timeout bounds a whole query including embedding and fan-out.
	Timeout time.Duration
}

// Service is the query engine: embed once, fan out per area, re-rank by
// combined vector and keyword score.
type Service struct {
	indexes IndexProvider
	embed   Embedder
	scorer  *Scorer
	pool    *ants.Pool
	cfg     Config
	logger  *zap.Logger
}

// New creates a query engine with a bounded fan-out pool of the given size.
func New(
	indexes IndexProvider, embed Embedder, scorer *Scorer,
	workers int, cfg Config, logger *zap.Logger,
) (*Service, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create fan-out pool: %w", err)
	}
	return &Service{
		indexes: indexes,
		embed:   embed,
		scorer:  scorer,
		pool:    pool,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Release frees the fan-out pool.
func (s *Service) Release() {
	s.pool.Release()
}

// Search executes a query per the combined-score ranking. When the
// embedding provider is down the engine degrades to keyword-only scoring
// over the target areas instead of failing or inventing results.
func (s *Service) Search(ctx context.Context, q search.Query) ([]result.Result, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	targets, err := s.targetAreas(q)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("semantic", "error").Inc()
		return nil, err
	}
	metrics.SearchAreasScanned.Observe(float64(len(targets)))
	if len(targets) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues("semantic", "success").Inc()
		return []result.Result{}, nil
	}

	embRes, err := s.embed.Embed(ctx, q.Text())
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingProviderError) {
			s.logger.Warn("Embedding provider unavailable, degrading to keyword-only search",
				zap.Error(err))
			return s.searchKeywordOnly(ctx, q, targets)
		}
		metrics.SearchRequestsTotal.WithLabelValues("semantic", "error").Inc()
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	hits, err := s.fanOut(ctx, targets, embRes.Embedding)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("semantic", "error").Inc()
		return nil, err
	}

	page := s.rank(q, hits)
	metrics.SearchRequestsTotal.WithLabelValues("semantic", "success").Inc()
	return page, nil
}

// targetAreas resolves the areas a query scans: the caller's explicit list,
// or all persisted areas in lexicographic order capped at MaxAreas.
func (s *Service) targetAreas(q search.Query) ([]area.Area, error) {
	if len(q.Areas()) > 0 {
		return q.Areas(), nil
	}
	all, err := s.indexes.Areas()
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	if s.cfg.MaxAreas > 0 && len(all) > s.cfg.MaxAreas {
		all = all[:s.cfg.MaxAreas]
	}
	return all, nil
}

// areaHits is one area's nearest-neighbor candidates.
type areaHits struct {
	area area.Area
	hits []indexstore.Hit
	err  error
}

// fanOut runs per-area top-k searches on the worker pool.
func (s *Service) fanOut(ctx context.Context, targets []area.Area, vec []float32) ([]areaHits, error) {
	out := make([]areaHits, len(targets))
	var wg sync.WaitGroup

	for i, a := range targets {
		i, a := i, a
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			out[i] = s.searchArea(ctx, a, vec)
		})
		if submitErr != nil {
			wg.Done()
			out[i] = areaHits{area: a, err: fmt.Errorf("submit area %s: %w", a, submitErr)}
		}
	}
	wg.Wait()

	var collected []areaHits
	for _, ah := range out {
		if ah.err != nil {
			// A missing index is zero results, anything else fails the query.
			if errors.Is(ah.err, domain.ErrIndexNotFound) {
				continue
			}
			return nil, ah.err
		}
		collected = append(collected, ah)
	}
	return collected, nil
}

func (s *Service) searchArea(ctx context.Context, a area.Area, vec []float32) areaHits {
	if err := ctx.Err(); err != nil {
		return areaHits{area: a, err: fmt.Errorf("area %s: %w", a, err)}
	}
	ai, err := s.indexes.Load(a)
	if err != nil {
		return areaHits{area: a, err: err}
	}
	hits, err := ai.Search(vec, s.cfg.TopKPerArea)
	if err != nil {
		return areaHits{area: a, err: err}
	}
	return areaHits{area: a, hits: hits}
}

// rank computes combined scores, deduplicates across areas, applies the
// relevance floor, sorts, and slices out the requested page.
func (s *Service) rank(q search.Query, collected []areaHits) []result.Result {
	type scored struct {
		hit  indexstore.Hit
		area area.Area
		rel  float64
	}

	var maxDist float32
	var maxRel float64
	var all []scored
	for _, ah := range collected {
		for _, h := range ah.hits {
			rel := s.scorer.Score(q.Text(), h.Decision)
			all = append(all, scored{hit: h, area: ah.area, rel: rel})
			if h.Distance > maxDist {
				maxDist = h.Distance
			}
			if rel > maxRel {
				maxRel = rel
			}
		}
	}

	results := make([]result.Result, 0, len(all))
	for _, c := range all {
		if c.rel < s.cfg.MinRelevance {
			continue
		}
		normDist := 0.0
		if maxDist > 0 {
			normDist = float64(c.hit.Distance) / float64(maxDist)
		}
		normRel := 0.0
		if maxRel > 0 {
			normRel = c.rel / maxRel
		}
		combined := s.cfg.VectorWeight*(1-normDist) + s.cfg.KeywordWeight*normRel
		results = append(results, result.New(
			c.hit.Decision, c.area, combined, float64(c.hit.Distance), c.rel,
		))
	}

	return paginate(q, dedupeSorted(results))
}

// searchKeywordOnly is the degradation path: relevance-score the whole
// mapping of each target area without vector distances.
func (s *Service) searchKeywordOnly(ctx context.Context, q search.Query, targets []area.Area) ([]result.Result, error) {
	var results []result.Result
	for _, a := range targets {
		if err := ctx.Err(); err != nil {
			metrics.SearchRequestsTotal.WithLabelValues("keyword_only", "error").Inc()
			return nil, fmt.Errorf("area %s: %w", a, err)
		}
		ai, err := s.indexes.Load(a)
		if err != nil {
			if errors.Is(err, domain.ErrIndexNotFound) {
				continue
			}
			metrics.SearchRequestsTotal.WithLabelValues("keyword_only", "error").Inc()
			return nil, err
		}
		for _, dec := range ai.Decisions() {
			rel := s.scorer.Score(q.Text(), dec)
			if rel < s.cfg.MinRelevance || rel == 0 {
				continue
			}
			results = append(results, result.New(dec, a, s.cfg.KeywordWeight*rel, 0, rel))
		}
	}

	metrics.SearchRequestsTotal.WithLabelValues("keyword_only", "success").Inc()
	return paginate(q, dedupeSorted(results)), nil
}

// dedupeSorted sorts by combined score (decision id breaks ties for a
// stable order) and keeps the best-scoring entry per decision id.
func dedupeSorted(results []result.Result) []result.Result {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Combined() != results[j].Combined() {
			return results[i].Combined() > results[j].Combined()
		}
		return results[i].Decision().ID() < results[j].Decision().ID()
	})

	seen := make(map[int64]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		id := r.Decision().ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, r)
	}
	return out
}

func paginate(q search.Query, results []result.Result) []result.Result {
	offset := q.Offset()
	if offset >= len(results) {
		return []result.Result{}
	}
	end := offset + q.PageSize()
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}
