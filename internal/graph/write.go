package graph

import (
	"regexp"
	"strings"

	"github.com/seifer44/lexigraph/internal/domain"
)

// GraphWrite is the sink's input command: either UpsertNode or UpsertEdge.
// The sink holds the single type switch over the two cases.
type GraphWrite interface {
	isGraphWrite()
}

type UpsertNode struct {
	Label string
	ID    string
	Props map[string]any
}

type UpsertEdge struct {
	FromLabel string
	FromID    string
	Rel       string
	ToLabel   string
	ToID      string
	Props     map[string]any
}

func (UpsertNode) isGraphWrite() {}
func (UpsertEdge) isGraphWrite() {}

var relTypeBad = regexp.MustCompile(`[^A-Z0-9_]`)

// RelType canonicalizes a predicate into a relationship type: uppercased,
// with anything outside [A-Z0-9_] replaced by an underscore.
func RelType(predicate string) string {
	return relTypeBad.ReplaceAllString(strings.ToUpper(predicate), "_")
}

// MaterializeChunk converts a chunk into its node upsert.
func MaterializeChunk(c domain.Chunk) GraphWrite {
	return UpsertNode{
		Label: "Chunk",
		ID:    c.ChunkID,
		Props: map[string]any{
			"chunkId":   c.ChunkID,
			"docId":     c.DocID,
			"text":      c.Text,
			"sourceUri": c.SourceURI,
			"hash":      c.Hash,
			"spanStart": int64(c.Span.Start),
			"spanEnd":   int64(c.Span.End),
		},
	}
}

// MaterializeConcept converts a concept into its node upsert.
func MaterializeConcept(c domain.Concept) GraphWrite {
	return UpsertNode{
		Label: "Concept",
		ID:    c.ConceptID,
		Props: map[string]any{
			"conceptId": c.ConceptID,
			"lemma":     c.Lemma,
			"surface":   c.Surface,
			"origin":    c.Origin,
		},
	}
}

// MaterializeMention converts a mention into its MENTIONS edge upsert.
func MaterializeMention(m domain.Mention) GraphWrite {
	return UpsertEdge{
		FromLabel: "Chunk",
		FromID:    m.ChunkID,
		Rel:       "MENTIONS",
		ToLabel:   "Concept",
		ToID:      m.Concept.ConceptID,
		Props:     map[string]any{},
	}
}

// MaterializeRelation converts a scored relation into a typed edge between
// its two concepts.
func MaterializeRelation(r domain.ScoredRelation) GraphWrite {
	return UpsertEdge{
		FromLabel: "Concept",
		FromID:    r.A.ConceptID,
		Rel:       RelType(r.Predicate),
		ToLabel:   "Concept",
		ToID:      r.B.ConceptID,
		Props: map[string]any{
			"confidence": r.Confidence,
			"evidence":   r.Evidence,
		},
	}
}

// idProperty names the MERGE key for a node label.
func idProperty(label string) string {
	switch label {
	case "Chunk":
		return "chunkId"
	case "Concept":
		return "conceptId"
	default:
		return "id"
	}
}
