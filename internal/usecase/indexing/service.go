package indexing

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/caselex/caselex/internal/domain"
	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/decision"
	"github.com/caselex/caselex/internal/metrics"
	"github.com/caselex/caselex/internal/repository/indexstore"
)

// Config holds indexer tuning knobs.
type Config struct {
	// MinTextLen excludes decisions whose full text is shorter.
	MinTextLen int
	// FetchBatch is the number of decisions pulled per database round-trip.
	FetchBatch int
	// TextCap bounds the full-text prefix used for embedding input.
	TextCap int
}

// Stats summarizes a completed indexing run.
type Stats struct {
	Batches    int
	Decisions  int
	Areas      int
	Checkpoint int64
}

// Service is the incremental indexer. Each run drains the delta above the
// checkpoint in batches; a batch's checkpoint advances only after every
// touched area has been persisted, so a failed batch is simply retried in
// full on the next run (appends deduplicate by decision id).
type Service struct {
	source     DecisionSource
	embedder   BatchEmbedder
	indexes    IndexManager
	checkpoint CheckpointStore
	lexicon    *area.Lexicon
	cfg        Config
	logger     *zap.Logger
	running    atomic.Bool
}

// New creates the indexer.
func New(
	source DecisionSource, embedder BatchEmbedder, indexes IndexManager,
	checkpoint CheckpointStore, lexicon *area.Lexicon,
	cfg Config, logger *zap.Logger,
) *Service {
	return &Service{
		source:     source,
		embedder:   embedder,
		indexes:    indexes,
		checkpoint: checkpoint,
		lexicon:    lexicon,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run processes all decisions above the checkpoint. Concurrent runs within
// one process are rejected with ErrIndexerBusy; cross-process exclusion is
// the scheduler's contract.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Stats{}, domain.ErrIndexerBusy
	}
	defer s.running.Store(false)

	var stats Stats

	cp, err := s.checkpoint.Read()
	if err != nil {
		metrics.IndexerRunsTotal.WithLabelValues("error").Inc()
		return stats, fmt.Errorf("read checkpoint: %w", err)
	}
	stats.Checkpoint = cp

	touched := make(map[area.Area]struct{})

	for {
		batch, err := s.source.FetchNewerThan(ctx, stats.Checkpoint, s.cfg.MinTextLen, s.cfg.FetchBatch)
		if err != nil {
			metrics.IndexerRunsTotal.WithLabelValues("error").Inc()
			return stats, fmt.Errorf("fetch decisions after id %d: %w", stats.Checkpoint, err)
		}
		if len(batch) == 0 {
			break
		}

		appended, batchAreas, err := s.processBatch(ctx, batch)
		if err != nil {
			metrics.IndexerRunsTotal.WithLabelValues("error").Inc()
			return stats, err
		}

		// Checkpoint moves only after every touched area is on disk.
		newCP := batch[len(batch)-1].ID()
		if err := s.checkpoint.Write(newCP); err != nil {
			metrics.IndexerRunsTotal.WithLabelValues("error").Inc()
			return stats, fmt.Errorf("advance checkpoint to %d: %w", newCP, err)
		}

		stats.Batches++
		stats.Decisions += appended
		stats.Checkpoint = newCP
		for a := range batchAreas {
			touched[a] = struct{}{}
		}

		s.logger.Info("Indexed decision batch",
			zap.Int("decisions", len(batch)),
			zap.Int("appended", appended),
			zap.Int("areas", len(batchAreas)),
			zap.Int64("checkpoint", newCP),
		)
	}

	stats.Areas = len(touched)

	if stats.Batches == 0 {
		metrics.IndexerRunsTotal.WithLabelValues("noop").Inc()
		s.logger.Info("Indexing run found no new decisions", zap.Int64("checkpoint", stats.Checkpoint))
		return stats, nil
	}

	metrics.IndexerRunsTotal.WithLabelValues("success").Inc()
	metrics.IndexerDecisionsTotal.Add(float64(stats.Decisions))
	metrics.IndexerAreasTouched.Observe(float64(stats.Areas))
	return stats, nil
}

// processBatch embeds, classifies, appends, and persists one batch.
func (s *Service) processBatch(
	ctx context.Context, batch []decision.Decision,
) (int, map[area.Area]struct{}, error) {
	texts := make([]string, len(batch))
	for i, dec := range batch {
		texts[i] = dec.EmbeddingText(s.cfg.TextCap)
	}

	embRes, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, nil, fmt.Errorf("embed batch of %d: %w", len(batch), err)
	}
	if len(embRes.Embeddings) != len(batch) {
		return 0, nil, fmt.Errorf(
			"got %d embeddings for %d decisions: %w", len(embRes.Embeddings), len(batch), domain.ErrEmbeddingProviderError)
	}

	aggregates := make(map[area.Area]*indexstore.AreaIndex)
	appended := 0

	for i, dec := range batch {
		areas := s.lexicon.Classify(dec.Court(), dec.SearchText())
		for _, a := range areas {
			ai, ok := aggregates[a]
			if !ok {
				ai, err = s.indexes.Load(a)
				if err != nil {
					return 0, nil, fmt.Errorf("load area %s: %w", a, err)
				}
				aggregates[a] = ai
			}
			added, err := ai.Append(embRes.Embeddings[i], dec)
			if err != nil {
				return 0, nil, fmt.Errorf("append decision %d: %w", dec.ID(), err)
			}
			if added {
				appended++
			}
		}
	}

	touched := make(map[area.Area]struct{}, len(aggregates))
	for a, ai := range aggregates {
		if err := s.indexes.Persist(ai); err != nil {
			return 0, nil, fmt.Errorf("persist area %s: %w", a, err)
		}
		touched[a] = struct{}{}
	}
	return appended, touched, nil
}
