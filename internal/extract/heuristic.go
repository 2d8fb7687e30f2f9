package extract

import (
	"regexp"

	"github.com/seifer44/lexigraph/internal/domain"
)

// Token-shape classifiers for the heuristic path. Tokens are matched whole,
// so "HTTPServer" never half-matches as an acronym.
var (
	wordRe          = regexp.MustCompile(`[A-Za-z0-9]+`)
	acronymRe       = regexp.MustCompile(`^[A-Z]{2,6}$`)
	camelCaseRe     = regexp.MustCompile(`^[A-Z][a-z0-9]+(?:[A-Z][a-z0-9]*)+$`)
	capitalizedRe   = regexp.MustCompile(`^[A-Z][a-z0-9]+$`)
	technicalTermRe = regexp.MustCompile(`^[a-z]+(?:[A-Z][a-zA-Z0-9]*)+$`)
	capSequenceRe   = regexp.MustCompile(`\b[A-Z][a-z0-9]+(?:\s+[A-Z][a-z0-9]+)+\b`)
)

// Origin tags for the heuristic path. The NER origin is shared with the
// annotated path's capitalized findings.
const (
	OriginHeuristicNER  = "NER"
	OriginCamelCase     = "camelCase"
	OriginAcronym       = "acronym"
	OriginTechnicalTerm = "technicalTerm"
)

// HeuristicConcepts extracts domain tokens from raw text with shape rules
// alone. It is the safety net under the annotated path and the only path for
// identifiers (CamelCase, ACRONYM, mixedCase) that NER models rarely tag.
// Uniqueness is by lemma; the first surface seen for a lemma wins.
func HeuristicConcepts(text string) []domain.Concept {
	var out []domain.Concept
	seen := map[string]struct{}{}

	add := func(surface, origin string) {
		c := NewConcept(surface, origin)
		if c.Lemma == "" {
			return
		}
		if _, dup := seen[c.Lemma]; dup {
			return
		}
		seen[c.Lemma] = struct{}{}
		out = append(out, c)
	}

	// Multi-word capitalized sequences first so "Machine Learning" lands as
	// one concept before its words are classified individually.
	for _, seq := range capSequenceRe.FindAllString(text, -1) {
		words := wordRe.FindAllString(seq, -1)
		stop := false
		for _, w := range words {
			if isStopWord(w) {
				stop = true
				break
			}
		}
		if !stop && len(seq) > 2 {
			add(seq, OriginHeuristicNER)
		}
	}

	for _, tok := range wordRe.FindAllString(text, -1) {
		switch {
		case acronymRe.MatchString(tok):
			add(tok, OriginAcronym)
		case camelCaseRe.MatchString(tok):
			add(tok, OriginCamelCase)
		case capitalizedRe.MatchString(tok):
			if len(tok) > 2 && !isStopWord(tok) {
				add(tok, OriginHeuristicNER)
			}
		case technicalTermRe.MatchString(tok):
			add(tok, OriginTechnicalTerm)
		}
	}
	return out
}
