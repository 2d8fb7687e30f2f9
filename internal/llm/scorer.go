package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/seifer44/lexigraph/internal/domain"
	"github.com/seifer44/lexigraph/internal/platform/logger"
)

// FallbackPredicate absorbs every predicate the model invents outside the
// configured vocabulary.
const FallbackPredicate = "related_to"

// Generator is the slice of Client the scorer needs; tests substitute stubs.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Scorer turns a relation candidate into a scored relation by prompting the
// LLM and leniently parsing whatever comes back. Candidates whose request
// exhausts its retries are dropped, never propagated.
type Scorer struct {
	gen           Generator
	predicates    []string
	predicateSet  map[string]struct{}
	minConfidence float64
	log           *logger.Logger
}

func NewScorer(gen Generator, predicates []string, minConfidence float64, log *logger.Logger) *Scorer {
	set := make(map[string]struct{}, len(predicates))
	for _, p := range predicates {
		set[p] = struct{}{}
	}
	return &Scorer{
		gen:           gen,
		predicates:    predicates,
		predicateSet:  set,
		minConfidence: minConfidence,
		log:           log.With("component", "RelationScorer"),
	}
}

// Score asks the LLM for a verdict on the candidate. The boolean is false
// when the candidate is dropped: request exhaustion or a verdict below the
// confidence threshold.
func (s *Scorer) Score(ctx context.Context, cand domain.RelationCandidate) (domain.ScoredRelation, bool) {
	text, err := s.gen.Generate(ctx, s.BuildPrompt(cand))
	if err != nil {
		s.log.Warn("Dropping candidate after LLM failure",
			"a", cand.A.Lemma, "b", cand.B.Lemma, "error", err)
		return domain.ScoredRelation{}, false
	}

	verdict := s.ParseVerdict(text, cand)
	if verdict.Confidence < s.minConfidence {
		return domain.ScoredRelation{}, false
	}

	return domain.ScoredRelation{
		A:          cand.A,
		B:          cand.B,
		Predicate:  verdict.Predicate,
		Confidence: verdict.Confidence,
		Evidence:   verdict.Evidence,
	}, true
}

// BuildPrompt names both concepts, quotes the evidence, and pins the model to
// the allowed predicate vocabulary and a JSON-only reply.
func (s *Scorer) BuildPrompt(cand domain.RelationCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Two concepts appear together in a text passage.\n")
	fmt.Fprintf(&b, "Concept A: %s\nConcept B: %s\n\n", cand.A.Lemma, cand.B.Lemma)
	fmt.Fprintf(&b, "Passage:\n\"%s\"\n\n", cand.Evidence)
	fmt.Fprintf(&b, "Choose the single best relation from A to B. Allowed predicates: %s.\n",
		strings.Join(s.predicates, ", "))
	b.WriteString("Reply with ONLY a JSON object of the shape ")
	b.WriteString(`{"predicate":"...","confidence":0.0,"evidence":"...","ref":"..."}` + "\n")
	b.WriteString("where confidence is a number in [0,1] and evidence is a short quote from the passage.")
	return b.String()
}

var (
	predicateRe  = regexp.MustCompile(`(?i)predicate["']?\s*[:=]\s*"?([a-z_]+)`)
	confidenceRe = regexp.MustCompile(`(?i)confidence["']?\s*[:=]\s*"?([0-9.]+)`)
	evidenceRe   = regexp.MustCompile(`evidence["']?\s*[:=]\s*"([^"]+)"`)
)

// ParseVerdict extracts a verdict from generated text. Strategy one pulls the
// first {...} substring and decodes it as JSON; strategy two falls back to
// field-by-field regex scraping with defaults. Either way the confidence is
// clamped to [0,1] and unknown predicates collapse to related_to.
func (s *Scorer) ParseVerdict(text string, cand domain.RelationCandidate) domain.LlmVerdict {
	if v, ok := s.parseStrict(text); ok {
		return s.sanitize(v, cand)
	}
	return s.sanitize(s.parseLenient(text, cand), cand)
}

func (s *Scorer) parseStrict(text string) (domain.LlmVerdict, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return domain.LlmVerdict{}, false
	}
	var v domain.LlmVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return domain.LlmVerdict{}, false
	}
	if v.Predicate == "" {
		return domain.LlmVerdict{}, false
	}
	return v, true
}

func (s *Scorer) parseLenient(text string, cand domain.RelationCandidate) domain.LlmVerdict {
	v := domain.LlmVerdict{
		Predicate:  FallbackPredicate,
		Confidence: 0.5,
		Evidence:   truncate(cand.Evidence, 100),
	}
	if m := predicateRe.FindStringSubmatch(text); m != nil {
		v.Predicate = strings.ToLower(m[1])
	}
	if m := confidenceRe.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			v.Confidence = f
		}
	}
	if m := evidenceRe.FindStringSubmatch(text); m != nil {
		v.Evidence = m[1]
	}
	return v
}

func (s *Scorer) sanitize(v domain.LlmVerdict, cand domain.RelationCandidate) domain.LlmVerdict {
	if _, ok := s.predicateSet[v.Predicate]; !ok {
		v.Predicate = FallbackPredicate
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}
	if v.Evidence == "" {
		v.Evidence = truncate(cand.Evidence, 100)
	}
	v.Ref = cand.A.Lemma + "_" + v.Predicate + "_" + cand.B.Lemma
	return v
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
