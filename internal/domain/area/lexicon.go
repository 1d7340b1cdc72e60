package area

import (
	"sort"
	"strings"
)

// Area is a named legal category used to partition the search space.
type Area string

// Well-known areas referenced by classification overrides.
const (
	// Unclassified is the sentinel area for decisions matching no keywords.
	Unclassified Area = "unclassified"
	// ConstitutionalLaw is forced for decisions of the constitutional court.
	ConstitutionalLaw Area = "constitutional_law"
	// LaborLaw is forced for decisions of a labor chamber.
	LaborLaw Area = "labor_law"
)

// Court-name markers checked ahead of keyword scoring.
const (
	constitutionalCourtMarker = "constitutional court"
	laborChamberMarker        = "labor"
)

// Lexicon maps legal areas to their keyword sets. It drives both category
// assignment at indexing time and vocabulary weighting at scoring time.
type Lexicon struct {
	keywords map[Area][]string
	vocab    map[string]bool
}

// NewLexicon creates a lexicon from an area->keywords mapping.
// Keywords are lowercased; empty areas are dropped.
func NewLexicon(keywords map[Area][]string) *Lexicon {
	kw := make(map[Area][]string, len(keywords))
	vocab := make(map[string]bool)
	for a, words := range keywords {
		if len(words) == 0 {
			continue
		}
		lowered := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			lowered = append(lowered, w)
			vocab[w] = true
		}
		kw[a] = lowered
	}
	return &Lexicon{keywords: kw, vocab: vocab}
}

// Default returns the built-in legal-area lexicon.
func Default() *Lexicon {
	return NewLexicon(map[Area][]string{
		ConstitutionalLaw: {
			"constitution", "constitutional", "fundamental right", "annulment",
			"individual application", "legislative", "separation of powers",
		},
		LaborLaw: {
			"dismissal", "severance", "notice", "wage", "overtime", "employment contract",
			"reinstatement", "collective bargaining", "trade union", "employer", "employee",
		},
		"criminal_law": {
			"defendant", "sentence", "imprisonment", "acquittal", "prosecution",
			"probation", "criminal intent", "penal",
		},
		"civil_law": {
			"contract", "damages", "tort", "liability", "compensation",
			"breach", "good faith", "obligation",
		},
		"family_law": {
			"divorce", "custody", "alimony", "guardianship", "adoption", "matrimonial",
		},
		"administrative_law": {
			"administrative act", "annulment action", "public authority",
			"discretionary power", "civil servant", "zoning",
		},
		"tax_law": {
			"tax", "levy", "assessment", "taxpayer", "vat", "withholding",
		},
		"commercial_law": {
			"company", "shareholder", "bankruptcy", "negotiable instrument",
			"merger", "trade registry", "insolvency",
		},
		"enforcement_law": {
			"enforcement", "attachment", "foreclosure", "debtor", "creditor", "lien",
		},
		"social_security_law": {
			"pension", "social security", "insurance premium", "disability benefit",
			"occupational accident",
		},
		"intellectual_property_law": {
			"trademark", "patent", "copyright", "infringement", "industrial design",
		},
		"rental_law": {
			"lease", "tenant", "landlord", "eviction", "rent",
		},
	})
}

// Areas returns all lexicon areas in stable lexicographic order.
func (l *Lexicon) Areas() []Area {
	out := make([]Area, 0, len(l.keywords))
	for a := range l.keywords {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Keywords returns the keyword set of an area (nil if unknown).
func (l *Lexicon) Keywords(a Area) []string { return l.keywords[a] }

// IsVocabularyTerm reports whether the (lowercased) term belongs to any
// area's keyword set.
func (l *Lexicon) IsVocabularyTerm(term string) bool {
	return l.vocab[strings.ToLower(term)]
}

// Classify assigns a decision to one or more legal areas.
//
// Court-name overrides run first: a constitutional-court decision is always
// constitutional_law and a labor-chamber decision is always labor_law,
// regardless of keyword content. Otherwise the areas with the highest
// non-zero keyword match count win (ties keep all). Decisions matching no
// keywords fall back to the Unclassified sentinel.
func (l *Lexicon) Classify(court, text string) []Area {
	lcourt := strings.ToLower(court)
	if strings.Contains(lcourt, constitutionalCourtMarker) {
		return []Area{ConstitutionalLaw}
	}
	if strings.Contains(lcourt, laborChamberMarker) {
		return []Area{LaborLaw}
	}

	ltext := strings.ToLower(text)
	best := 0
	var winners []Area
	for _, a := range l.Areas() {
		count := 0
		for _, kw := range l.keywords[a] {
			if strings.Contains(ltext, kw) {
				count++
			}
		}
		switch {
		case count == 0:
			// no match
		case count > best:
			best = count
			winners = []Area{a}
		case count == best:
			winners = append(winners, a)
		}
	}

	if best == 0 {
		return []Area{Unclassified}
	}
	return winners
}

// Valid reports whether the area name is usable as a persistence key.
func Valid(a Area) bool {
	if a == "" || len(a) > 64 {
		return false
	}
	for _, r := range a {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
