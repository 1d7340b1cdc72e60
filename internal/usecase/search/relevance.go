package search

import (
	"strings"
	"unicode"

	"github.com/caselex/caselex/internal/domain/area"
	"github.com/caselex/caselex/internal/domain/decision"
)

// Field and vocabulary weights for keyword relevance.
const (
	summaryWeight  = 2.0
	fullTextWeight = 1.0
	vocabBoost     = 2.0
)

// Scorer computes the keyword relevance of a decision against a query.
// The score is the weighted overlap of query terms with the decision's
// summary and full text; terms from the legal-area vocabulary count more.
// Scores are normalized to [0,1] by the maximum achievable for the query.
type Scorer struct {
	lex *area.Lexicon
}

// NewScorer creates a relevance scorer over the given lexicon.
func NewScorer(lex *area.Lexicon) *Scorer {
	return &Scorer{lex: lex}
}

// Score returns the normalized keyword relevance of dec for queryText.
// A query with no usable terms scores 0 for every decision.
func (s *Scorer) Score(queryText string, dec decision.Decision) float64 {
	terms := tokenize(queryText)
	if len(terms) == 0 {
		return 0
	}

	summary := strings.ToLower(dec.Summary())
	fullText := strings.ToLower(dec.FullText())

	var score, maxScore float64
	for _, term := range terms {
		boost := 1.0
		if s.lex.IsVocabularyTerm(term) {
			boost = vocabBoost
		}
		maxScore += (summaryWeight + fullTextWeight) * boost

		if strings.Contains(summary, term) {
			score += summaryWeight * boost
		}
		if strings.Contains(fullText, term) {
			score += fullTextWeight * boost
		}
	}
	return score / maxScore
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping
// duplicates while preserving first-seen order.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
