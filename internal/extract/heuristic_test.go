package extract

import (
	"testing"

	"github.com/seifer44/lexigraph/internal/domain"
)

func lemmaSet(concepts []domain.Concept) map[string]domain.Concept {
	m := make(map[string]domain.Concept, len(concepts))
	for _, c := range concepts {
		m[c.Lemma] = c
	}
	return m
}

func TestHeuristicConceptsIdentifiers(t *testing.T) {
	got := lemmaSet(HeuristicConcepts("CamelCase API uses machine learning"))

	cc, ok := got["camel_case"]
	if !ok {
		t.Fatal("missing camel_case")
	}
	if cc.Origin != OriginCamelCase {
		t.Fatalf("camel_case origin = %q, want %q", cc.Origin, OriginCamelCase)
	}

	api, ok := got["api"]
	if !ok {
		t.Fatal("missing api")
	}
	if api.Origin != OriginAcronym {
		t.Fatalf("api origin = %q, want %q", api.Origin, OriginAcronym)
	}

	// Lowercase-only words are not identifiers.
	for _, lemma := range []string{"uses", "machine", "learning"} {
		if _, found := got[lemma]; found {
			t.Fatalf("unexpected concept %q", lemma)
		}
	}
}

func TestHeuristicConceptsCapitalizedSequence(t *testing.T) {
	got := lemmaSet(HeuristicConcepts("Machine Learning powers Neo4j"))

	seq, ok := got["machine_learning"]
	if !ok {
		t.Fatal("missing machine_learning sequence concept")
	}
	if seq.Origin != OriginHeuristicNER {
		t.Fatalf("sequence origin = %q, want %q", seq.Origin, OriginHeuristicNER)
	}
	if seq.Surface != "Machine Learning" {
		t.Fatalf("sequence surface = %q", seq.Surface)
	}

	if _, ok := got["neo4j"]; !ok {
		t.Fatal("missing neo4j")
	}
}

func TestHeuristicConceptsStopWords(t *testing.T) {
	got := lemmaSet(HeuristicConcepts("The System started With problems"))

	if _, found := got["the"]; found {
		t.Fatal("stop word The became a concept")
	}
	if _, found := got["the_system"]; found {
		t.Fatal("sequence containing a stop word became a concept")
	}
	if _, found := got["with"]; found {
		t.Fatal("stop word With became a concept")
	}
	if _, ok := got["system"]; !ok {
		t.Fatal("missing system")
	}
}

func TestHeuristicConceptsTechnicalTerm(t *testing.T) {
	got := lemmaSet(HeuristicConcepts("call useState before render"))

	ts, ok := got["use_state"]
	if !ok {
		t.Fatal("missing use_state")
	}
	if ts.Origin != OriginTechnicalTerm {
		t.Fatalf("origin = %q, want %q", ts.Origin, OriginTechnicalTerm)
	}
}

func TestHeuristicConceptsDeduplicatesByLemma(t *testing.T) {
	got := HeuristicConcepts("API api API")
	if len(got) != 1 {
		t.Fatalf("expected 1 concept, got %d", len(got))
	}
	if got[0].Surface != "API" {
		t.Fatalf("first surface should win, got %q", got[0].Surface)
	}
}
