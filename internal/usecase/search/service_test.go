package search

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/caselex/caselex/internal/domain"
	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/decision"
	"github.com/caselex/caselex/internal/domain/search"
	"github.com/caselex/caselex/internal/repository/indexstore"
)

type mockEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if vec, ok := m.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	return domain.EmbeddingResult{Embedding: []float32{0, 0, 0}}, nil
}

func mustDecision(t *testing.T, id int64, court, summary, fullText string) decision.Decision {
	t.Helper()
	dec, err := decision.New(
		id, court, "2024/1", "2024/2",
		time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		summary, fullText,
	)
	if err != nil {
		t.Fatalf("decision: %v", err)
	}
	return dec
}

// testProvider serves pre-built aggregates from memory.
type testProvider struct {
	indexes map[area.Area]*indexstore.AreaIndex
}

func (p *testProvider) Load(a area.Area) (*indexstore.AreaIndex, error) {
	if ai, ok := p.indexes[a]; ok {
		return ai, nil
	}
	return indexstore.NewAreaIndex(a, 3)
}

func (p *testProvider) Areas() ([]area.Area, error) {
	out := make([]area.Area, 0, len(p.indexes))
	for _, a := range []area.Area{"civil_law", "labor_law", "tax_law"} {
		if _, ok := p.indexes[a]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func newFixture(t *testing.T) (*testProvider, *mockEmbedder) {
	t.Helper()

	laborDismissal := mustDecision(t, 1, "9th Labor Chamber",
		"dismissal without observing the notice period",
		"the employer terminated the employment contract without notice, severance and notice pay are due")
	laborWage := mustDecision(t, 2, "9th Labor Chamber",
		"unpaid overtime wage claim",
		"the employee sought overtime wage during weekend work")
	taxAssessment := mustDecision(t, 3, "Council of State",
		"vat assessment annulled",
		"the tax assessment lacked a lawful basis")
	laborDismissalOnly := mustDecision(t, 4, "9th Labor Chamber",
		"dismissal of a probationary employee",
		"the dismissal was not based on a valid reason")

	labor, err := indexstore.NewAreaIndex("labor_law", 3)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	labor.Append([]float32{1, 0, 0}, laborDismissal)
	labor.Append([]float32{0, 1, 0}, laborWage)
	labor.Append([]float32{0.8, 0.2, 0}, laborDismissalOnly)

	tax, _ := indexstore.NewAreaIndex("tax_law", 3)
	tax.Append([]float32{0, 0, 1}, taxAssessment)

	provider := &testProvider{indexes: map[area.Area]*indexstore.AreaIndex{
		"labor_law": labor,
		"tax_law":   tax,
	}}
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"notice period for dismissal": {0.9, 0.1, 0},
	}}
	return provider, embedder
}

func newService(t *testing.T, provider IndexProvider, embedder Embedder) *Service {
	t.Helper()
	svc, err := New(provider, embedder, NewScorer(area.Default()), 2, Config{
		TopKPerArea:   10,
		MaxAreas:      10,
		VectorWeight:  0.3,
		KeywordWeight: 0.7,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	t.Cleanup(svc.Release)
	return svc
}

func mustQuery(t *testing.T, text string, areas []area.Area) search.Query {
	t.Helper()
	q, err := search.NewQuery(text, areas, 1, 20)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	return q
}

func TestSearch_RanksDismissalFirst(t *testing.T) {
	provider, embedder := newFixture(t)
	svc := newService(t, provider, embedder)

	results, err := svc.Search(context.Background(), mustQuery(t, "notice period for dismissal", nil))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].Decision().ID() != 1 {
		t.Fatalf("expected dismissal decision first, got id %d", results[0].Decision().ID())
	}
	if results[0].Relevance() <= results[len(results)-1].Relevance() {
		t.Errorf("expected top result to carry highest relevance")
	}
	if results[0].Combined() <= 0 {
		t.Errorf("combined score must be positive, got %f", results[0].Combined())
	}
}

func TestSearch_StableAcrossRuns(t *testing.T) {
	provider, embedder := newFixture(t)
	svc := newService(t, provider, embedder)
	q := mustQuery(t, "notice period for dismissal", nil)

	first, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := svc.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: %d results vs %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i].Decision().ID() != first[i].Decision().ID() {
				t.Fatalf("run %d: order changed at %d", run, i)
			}
		}
	}
}

func TestSearch_WageDecisionRanksLast(t *testing.T) {
	provider, embedder := newFixture(t)
	embedder.vectors["dismissal notice"] = []float32{0.9, 0.1, 0}
	svc := newService(t, provider, embedder)

	results, err := svc.Search(context.Background(),
		mustQuery(t, "dismissal notice", []area.Area{"labor_law"}))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected all 3 labor decisions, got %d", len(results))
	}

	// Both terms match decision 1, only one matches decision 4, neither
	// matches the wage decision, which must come last.
	wantOrder := []int64{1, 4, 2}
	for i, want := range wantOrder {
		if got := results[i].Decision().ID(); got != want {
			t.Fatalf("position %d: id = %d, want %d (full order %v)", i, got, want, wantOrder)
		}
	}
	if results[2].Relevance() != 0 {
		t.Errorf("wage decision relevance = %f, want 0", results[2].Relevance())
	}
}

func TestSearch_ExplicitAreasOnly(t *testing.T) {
	provider, embedder := newFixture(t)
	svc := newService(t, provider, embedder)

	results, err := svc.Search(context.Background(),
		mustQuery(t, "notice period for dismissal", []area.Area{"tax_law"}))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.Area() != "tax_law" {
			t.Fatalf("result from unexpected area %s", r.Area())
		}
	}
}

func TestSearch_MissingAreaIsEmpty(t *testing.T) {
	provider, embedder := newFixture(t)
	svc := newService(t, provider, embedder)

	results, err := svc.Search(context.Background(),
		mustQuery(t, "notice period for dismissal", []area.Area{"family_law"}))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for unindexed area, got %d", len(results))
	}
}

func TestSearch_DegradesToKeywordOnly(t *testing.T) {
	provider, _ := newFixture(t)
	embedder := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	svc := newService(t, provider, embedder)

	results, err := svc.Search(context.Background(), mustQuery(t, "notice period for dismissal", nil))
	if err != nil {
		t.Fatalf("expected degraded search to succeed, got %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected keyword-only results")
	}
	if results[0].Decision().ID() != 1 {
		t.Fatalf("expected dismissal decision first, got id %d", results[0].Decision().ID())
	}
	for _, r := range results {
		if r.Distance() != 0 {
			t.Errorf("keyword-only result carries a vector distance: %f", r.Distance())
		}
		if r.Relevance() == 0 {
			t.Errorf("keyword-only result with zero relevance should be dropped")
		}
	}
}

func TestSearch_RelevanceFloorFilters(t *testing.T) {
	provider, embedder := newFixture(t)
	svc, err := New(provider, embedder, NewScorer(area.Default()), 2, Config{
		TopKPerArea:   10,
		MaxAreas:      10,
		VectorWeight:  0.3,
		KeywordWeight: 0.7,
		MinRelevance:  0.99,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer svc.Release()

	results, err := svc.Search(context.Background(), mustQuery(t, "notice period for dismissal", nil))
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected floor to drop everything, got %d results", len(results))
	}
}

func TestSearch_Pagination(t *testing.T) {
	provider, embedder := newFixture(t)
	svc := newService(t, provider, embedder)

	q1, _ := search.NewQuery("notice period for dismissal", nil, 1, 1)
	q2, _ := search.NewQuery("notice period for dismissal", nil, 2, 1)

	page1, err := svc.Search(context.Background(), q1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	page2, err := svc.Search(context.Background(), q2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page1) != 1 {
		t.Fatalf("page1 size = %d", len(page1))
	}
	if len(page2) >= 1 && page2[0].Decision().ID() == page1[0].Decision().ID() {
		t.Error("pages overlap")
	}
}

func TestSearch_EmbedsQueryOnce(t *testing.T) {
	provider, embedder := newFixture(t)
	svc := newService(t, provider, embedder)

	if _, err := svc.Search(context.Background(), mustQuery(t, "notice period for dismissal", nil)); err != nil {
		t.Fatalf("search: %v", err)
	}
	if embedder.calls != 1 {
		t.Errorf("expected 1 embedding call per query, got %d", embedder.calls)
	}
}
