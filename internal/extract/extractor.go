package extract

import (
	"github.com/seifer44/lexigraph/internal/domain"
	"github.com/seifer44/lexigraph/internal/platform/logger"
)

// Extractor maps a chunk to its concept set. The annotated (NER) path is
// preferred; the heuristic path always runs to pick up identifiers the model
// misses, and takes over entirely when annotation fails or finds nothing.
type Extractor struct {
	annotator Annotator
	log       *logger.Logger
}

func NewExtractor(annotator Annotator, log *logger.Logger) *Extractor {
	if annotator == nil {
		annotator = NewProseAnnotator()
	}
	return &Extractor{
		annotator: annotator,
		log:       log.With("component", "Extractor"),
	}
}

// Extract returns the unique-by-lemma concept set of a chunk. Per-chunk
// failures never propagate: an annotator error logs a warning and the
// heuristic result is returned instead.
func (e *Extractor) Extract(chunk domain.Chunk) []domain.Concept {
	heur := HeuristicConcepts(chunk.Text)

	toks, err := e.annotator.Annotate(chunk.Text)
	if err != nil {
		e.log.Warn("Annotation failed, using heuristic path only",
			"chunk_id", chunk.ChunkID, "error", err)
		return heur
	}

	annotated := annotatedConcepts(toks)
	if len(annotated) == 0 {
		return heur
	}

	seen := make(map[string]struct{}, len(annotated))
	out := make([]domain.Concept, 0, len(annotated)+len(heur))
	for _, c := range annotated {
		if _, dup := seen[c.Lemma]; dup {
			continue
		}
		seen[c.Lemma] = struct{}{}
		out = append(out, c)
	}

	// Identifier-shaped heuristic findings complement the model output; the
	// remaining heuristic origins are dropped once NER produced anything.
	for _, c := range heur {
		if c.Origin != OriginCamelCase && c.Origin != OriginAcronym {
			continue
		}
		if _, dup := seen[c.Lemma]; dup {
			continue
		}
		seen[c.Lemma] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Mentions wraps the chunk's concept set as mention records.
func (e *Extractor) Mentions(chunk domain.Chunk, concepts []domain.Concept) []domain.Mention {
	ms := make([]domain.Mention, 0, len(concepts))
	for _, c := range concepts {
		ms = append(ms, domain.Mention{ChunkID: chunk.ChunkID, Concept: c})
	}
	return ms
}

// nounTags are the single-token POS tags promoted to concepts when the token
// sits outside every entity span.
var nounTags = map[string]struct{}{
	"NN": {}, "NNS": {}, "NNP": {}, "NNPS": {},
}

func annotatedConcepts(toks []AnnotatedToken) []domain.Concept {
	var out []domain.Concept

	// Entity spans: contiguous runs of tokens sharing the same entity type.
	i := 0
	for i < len(toks) {
		if toks[i].NER == "" {
			i++
			continue
		}
		j := i + 1
		for j < len(toks) && toks[j].NER == toks[i].NER {
			j++
		}
		surface := joinTokens(toks[i:j])
		if len(surface) > 2 && !isStopWord(surface) {
			out = append(out, NewConcept(surface, "NER_"+toks[i].NER))
		}
		i = j
	}

	// Standalone nouns outside entity spans.
	for _, t := range toks {
		if t.NER != "" {
			continue
		}
		if _, noun := nounTags[t.POS]; !noun {
			continue
		}
		if len(t.Text) <= 2 || isNumeric(t.Text) {
			continue
		}
		out = append(out, NewConcept(t.Text, "POS_"+t.POS))
	}
	return out
}

func joinTokens(toks []AnnotatedToken) string {
	s := ""
	for i, t := range toks {
		if i > 0 {
			s += " "
		}
		s += t.Text
	}
	return s
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
