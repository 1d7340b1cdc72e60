package decision

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Decision is an immutable judicial-decision record (value object).
// The relational store is the source of truth; the search core only reads it,
// and area mappings carry denormalized snapshots of these fields.
type Decision struct {
	id             int64
	court          string
	caseNumber     string
	decisionNumber string
	date           time.Time
	summary        string
	fullText       string
}

// New validates and creates a Decision.
func New(
	id int64, court, caseNumber, decisionNumber string,
	date time.Time, summary, fullText string,
) (Decision, error) {
	if id <= 0 {
		return Decision{}, fmt.Errorf("decision id must be positive, got %d", id)
	}
	return Decision{
		id:             id,
		court:          court,
		caseNumber:     caseNumber,
		decisionNumber: decisionNumber,
		date:           date,
		summary:        summary,
		fullText:       fullText,
	}, nil
}

// Reconstruct creates a Decision without validation (storage hydration).
func Reconstruct(
	id int64, court, caseNumber, decisionNumber string,
	date time.Time, summary, fullText string,
) Decision {
	return Decision{
		id:             id,
		court:          court,
		caseNumber:     caseNumber,
		decisionNumber: decisionNumber,
		date:           date,
		summary:        summary,
		fullText:       fullText,
	}
}

// ID returns the decision identifier.
func (d Decision) ID() int64 { return d.id }

// Court returns the issuing court name.
func (d Decision) Court() string { return d.court }

// CaseNumber returns the case number.
func (d Decision) CaseNumber() string { return d.caseNumber }

// DecisionNumber returns the decision number.
func (d Decision) DecisionNumber() string { return d.decisionNumber }

// Date returns the decision date.
func (d Decision) Date() time.Time { return d.date }

// Summary returns the summary text.
func (d Decision) Summary() string { return d.summary }

// FullText returns the full decision text.
func (d Decision) FullText() string { return d.fullText }

// TextLen returns the length of the full text in bytes.
func (d Decision) TextLen() int { return len(d.fullText) }

// EmbeddingText composes the text fed to the embedding model: the summary
// concatenated with a bounded prefix of the full text. capChars bounds the
// full-text prefix; capChars <= 0 means no cap.
func (d Decision) EmbeddingText(capChars int) string {
	body := d.fullText
	if capChars > 0 && len(body) > capChars {
		// Back the cut off to a rune boundary so the prefix stays valid UTF-8.
		cut := capChars
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}

	var b strings.Builder
	if d.summary != "" {
		b.WriteString(d.summary)
		if body != "" {
			b.WriteString("\n")
		}
	}
	b.WriteString(body)
	return b.String()
}

// SearchText returns the text used for keyword relevance scoring.
func (d Decision) SearchText() string {
	return d.summary + "\n" + d.fullText
}
