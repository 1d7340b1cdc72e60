package search

import (
	"testing"
	"time"

	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/decision"
)

func relDecision(t *testing.T, summary, fullText string) decision.Decision {
	t.Helper()
	dec, err := decision.New(
		1, "Court", "1", "1",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		summary, fullText,
	)
	if err != nil {
		t.Fatalf("decision: %v", err)
	}
	return dec
}

func TestScore_SummaryOutweighsFullText(t *testing.T) {
	s := NewScorer(area.Default())

	inSummary := relDecision(t, "dismissal of the employee", "unrelated body")
	inBody := relDecision(t, "unrelated summary", "dismissal of the employee")

	if s.Score("dismissal", inSummary) <= s.Score("dismissal", inBody) {
		t.Error("summary match should score higher than full-text match")
	}
}

func TestScore_VocabularyTermsBoosted(t *testing.T) {
	s := NewScorer(area.Default())

	dec := relDecision(t, "dismissal gardening", "dismissal gardening")

	// Both terms match both fields; only "dismissal" is a lexicon term so it
	// contributes more to the max, keeping the score below 1 for the
	// non-vocabulary half.
	vocabOnly := s.Score("dismissal", dec)
	plainOnly := s.Score("gardening", dec)
	if vocabOnly != 1 || plainOnly != 1 {
		t.Fatalf("full matches should normalize to 1, got %f and %f", vocabOnly, plainOnly)
	}

	partial := relDecision(t, "dismissal", "dismissal")
	mixed := s.Score("dismissal gardening", partial)
	if mixed <= 0.5 {
		t.Errorf("vocabulary match should dominate the mixed score, got %f", mixed)
	}
	if mixed >= 1 {
		t.Errorf("unmatched term must keep score below 1, got %f", mixed)
	}
}

func TestScore_NoMatchIsZero(t *testing.T) {
	s := NewScorer(area.Default())
	dec := relDecision(t, "tax assessment", "vat dispute")

	if got := s.Score("maritime collision", dec); got != 0 {
		t.Errorf("score = %f, want 0", got)
	}
}

func TestScore_EmptyQueryIsZero(t *testing.T) {
	s := NewScorer(area.Default())
	dec := relDecision(t, "anything", "anything")

	if got := s.Score("  ...  ", dec); got != 0 {
		t.Errorf("score = %f, want 0", got)
	}
}

func TestScore_Monotonicity(t *testing.T) {
	s := NewScorer(area.Default())

	oneTerm := relDecision(t, "dismissal", "dismissal")
	twoTerms := relDecision(t, "dismissal notice", "dismissal notice")

	q := "dismissal notice"
	if s.Score(q, twoTerms) <= s.Score(q, oneTerm) {
		t.Error("more matched terms must not score lower")
	}
}

func TestTokenize_DedupsAndLowercases(t *testing.T) {
	got := tokenize("Dismissal, dismissal; NOTICE notice!")
	want := []string{"dismissal", "notice"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tokens = %v, want %v", got, want)
		}
	}
}
