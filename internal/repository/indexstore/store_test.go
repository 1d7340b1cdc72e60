package indexstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mus-format/mus-go/varint"
	"go.uber.org/zap"

	"github.com/caselex/caselex/internal/domain"
	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/decision"
)

func testDecision(t *testing.T, id int64, summary string) decision.Decision {
	t.Helper()
	dec, err := decision.New(
		id, "Court of Cassation", "2024/123", "2024/456",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		summary, "full text of the decision about "+summary,
	)
	if err != nil {
		t.Fatalf("decision: %v", err)
	}
	return dec
}

func TestAppend_DedupsByDecisionID(t *testing.T) {
	ai, err := NewAreaIndex("labor_law", 2)
	if err != nil {
		t.Fatalf("new aggregate: %v", err)
	}
	dec := testDecision(t, 7, "dismissal")

	added, err := ai.Append([]float32{1, 2}, dec)
	if err != nil || !added {
		t.Fatalf("first append: added=%v err=%v", added, err)
	}
	added, err = ai.Append([]float32{3, 4}, dec)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if added {
		t.Error("duplicate id should not be added")
	}
	if ai.Len() != 1 {
		t.Errorf("len = %d, want 1", ai.Len())
	}
}

func TestPersistLoad_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	ai, _ := NewAreaIndex("labor_law", 3)
	ai.Append([]float32{1, 0, 0}, testDecision(t, 1, "dismissal without notice"))
	ai.Append([]float32{0, 1, 0}, testDecision(t, 2, "unpaid wage claim"))

	if err := store.Persist(ai); err != nil {
		t.Fatalf("persist: %v", err)
	}

	loaded, err := store.Load("labor_law", 3)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("loaded len = %d, want 2", loaded.Len())
	}

	hits, err := loaded.Search([]float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Decision.ID() != 1 {
		t.Fatalf("expected decision 1 nearest, got %+v", hits)
	}
	if got := hits[0].Decision.Summary(); got != "dismissal without notice" {
		t.Errorf("summary = %q", got)
	}
	if !loaded.Contains(2) {
		t.Error("loaded aggregate lost dedup state")
	}
}

func TestLoad_MissingAreaIsEmpty(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	ai, err := store.Load("tax_law", 4)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ai.Len() != 0 {
		t.Errorf("expected empty aggregate, len = %d", ai.Len())
	}
}

func TestLoad_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	if err := os.WriteFile(filepath.Join(dir, "civil_law.idx"), []byte("not an index"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := store.Load("civil_law", 3)
	if !errors.Is(err, domain.ErrCorruptIndex) {
		t.Fatalf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestLoad_TruncatedArtifact(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	ai, _ := NewAreaIndex("civil_law", 2)
	ai.Append([]float32{1, 2}, testDecision(t, 9, "breach of contract"))
	if err := store.Persist(ai); err != nil {
		t.Fatalf("persist: %v", err)
	}

	path := filepath.Join(dir, "civil_law.idx")
	bs, _ := os.ReadFile(path)
	if err := os.WriteFile(path, bs[:len(bs)/2], 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	_, err := store.Load("civil_law", 2)
	if !errors.Is(err, domain.ErrCorruptIndex) {
		t.Fatalf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestLoad_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	ai, _ := NewAreaIndex("civil_law", 2)
	ai.Append([]float32{1, 2}, testDecision(t, 9, "breach of contract"))
	if err := store.Persist(ai); err != nil {
		t.Fatalf("persist: %v", err)
	}

	_, err := store.Load("civil_law", 3)
	if !errors.Is(err, domain.ErrCorruptIndex) {
		t.Fatalf("expected ErrCorruptIndex for dimension mismatch, got %v", err)
	}
}

// A flipped bit in the dim varint must fail the load, not take down the
// process with a giant allocation.
func TestLoad_RejectsOversizedDimension(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	bs := make([]byte, 32)
	n := varint.PositiveInt.Marshal(codecVersion, bs)
	n += varint.PositiveInt.Marshal(1<<40, bs[n:])
	n += varint.PositiveInt.Marshal(1, bs[n:])
	if err := os.WriteFile(filepath.Join(dir, "civil_law.idx"), bs[:n], 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := store.Load("civil_law", 3)
	if !errors.Is(err, domain.ErrCorruptIndex) {
		t.Fatalf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestLoad_RejectsOversizedCount(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir)

	bs := make([]byte, 32)
	n := varint.PositiveInt.Marshal(codecVersion, bs)
	n += varint.PositiveInt.Marshal(3, bs[n:])
	n += varint.PositiveInt.Marshal(1<<40, bs[n:])
	if err := os.WriteFile(filepath.Join(dir, "civil_law.idx"), bs[:n], 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := store.Load("civil_law", 3)
	if !errors.Is(err, domain.ErrCorruptIndex) {
		t.Fatalf("expected ErrCorruptIndex, got %v", err)
	}
}

func TestAreas_SortedListing(t *testing.T) {
	store, _ := NewStore(t.TempDir())

	for _, a := range []area.Area{"tax_law", "civil_law", "labor_law"} {
		ai, _ := NewAreaIndex(a, 2)
		ai.Append([]float32{1, 1}, testDecision(t, 1, "x"))
		if err := store.Persist(ai); err != nil {
			t.Fatalf("persist %s: %v", a, err)
		}
	}

	areas, err := store.Areas()
	if err != nil {
		t.Fatalf("areas: %v", err)
	}
	want := []area.Area{"civil_law", "labor_law", "tax_law"}
	if len(areas) != len(want) {
		t.Fatalf("areas = %v", areas)
	}
	for i := range want {
		if areas[i] != want[i] {
			t.Fatalf("areas = %v, want %v", areas, want)
		}
	}
}

func TestManager_CachesLoads(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	mgr, err := NewManager(store, 2, 4, zap.NewNop())
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	first, err := mgr.Load("labor_law")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := mgr.Load("labor_law")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if first != second {
		t.Error("expected cache hit to return the same aggregate")
	}
}

func TestManager_EvictionKeepsSharedPointerUsable(t *testing.T) {
	store, _ := NewStore(t.TempDir())
	mgr, err := NewManager(store, 2, 1, zap.NewNop())
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	held, _ := mgr.Load("labor_law")
	held.Append([]float32{1, 1}, testDecision(t, 3, "severance"))

	// Force eviction of labor_law.
	if _, err := mgr.Load("tax_law"); err != nil {
		t.Fatalf("load: %v", err)
	}

	if held.Len() != 1 {
		t.Error("evicted aggregate became unusable")
	}
	if err := mgr.Persist(held); err != nil {
		t.Fatalf("persist after eviction: %v", err)
	}
}
