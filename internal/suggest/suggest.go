// Package suggest proposes keywords for a concept draft from its own
// text, using normalized term frequency. Pure, no I/O.
package suggest

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kimhsiao/conceptdeck/internal/models"
)

// DefaultLimit is the number of suggestions returned when no limit is
// configured.
const DefaultLimit = 8

const minTokenLength = 3

// Suggestion is one proposed keyword with its relative weight in the
// source text (term frequency, 0..1).
type Suggestion struct {
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
}

// Suggester extracts keyword candidates from concept text.
type Suggester struct {
	limit int
}

// NewSuggester creates a Suggester returning at most limit candidates.
// A non-positive limit falls back to DefaultLimit.
func NewSuggester(limit int) *Suggester {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Suggester{limit: limit}
}

// Suggest proposes keywords for a draft from its explanatory fields.
// Terms already present in the draft's keyword field are excluded.
func (s *Suggester) Suggest(c models.Concept) []Suggestion {
	text := strings.Join([]string{
		c.Title,
		c.Definition,
		c.DetailedExplanation,
		c.WhenToUse,
		c.WhyNeed,
		c.Differences,
	}, " ")

	exclude := map[string]bool{}
	for _, kw := range strings.Fields(strings.ToLower(c.Keyword)) {
		exclude[strings.Trim(kw, ",;")] = true
	}

	var out []Suggestion
	for _, sg := range s.SuggestFromText(text) {
		if exclude[sg.Keyword] {
			continue
		}
		out = append(out, sg)
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out
}

// SuggestFromText extracts the top terms of free text by frequency.
// Ties are broken alphabetically so results are stable.
func (s *Suggester) SuggestFromText(text string) []Suggestion {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return []Suggestion{}
	}

	tf := map[string]float64{}
	for _, token := range tokens {
		tf[token]++
	}
	total := float64(len(tokens))

	candidates := make([]Suggestion, 0, len(tf))
	for term, count := range tf {
		candidates = append(candidates, Suggestion{Keyword: term, Score: count / total})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Keyword < candidates[j].Keyword
	})

	if len(candidates) > s.limit {
		candidates = candidates[:s.limit]
	}
	return candidates
}

// tokenize lowercases, strips surrounding punctuation and drops stop
// words, short tokens and bare numbers.
func tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		word = strings.ToLower(word)
		word = strings.TrimFunc(word, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})

		if len(word) < minTokenLength || stopWords[word] || isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

var stopWords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true,
	"all": true, "also": true, "and": true, "any": true, "are": true,
	"because": true, "been": true, "before": true, "below": true,
	"between": true, "both": true, "but": true, "can": true,
	"does": true, "during": true, "each": true, "every": true,
	"few": true, "for": true, "from": true, "further": true,
	"get": true, "getting": true, "got": true, "had": true,
	"has": true, "have": true, "here": true, "how": true,
	"into": true, "its": true, "just": true, "more": true,
	"most": true, "nor": true, "not": true, "once": true,
	"only": true, "other": true, "own": true, "same": true,
	"some": true, "such": true, "than": true, "that": true,
	"the": true, "their": true, "them": true, "then": true,
	"there": true, "these": true, "they": true, "this": true,
	"those": true, "through": true, "too": true, "under": true,
	"use": true, "used": true, "uses": true, "using": true,
	"very": true, "was": true, "what": true, "when": true,
	"where": true, "which": true, "who": true, "why": true,
	"will": true, "with": true, "you": true, "your": true,
}
