package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/seifer44/lexigraph/internal/domain"
	"github.com/seifer44/lexigraph/internal/extract"
	"github.com/seifer44/lexigraph/internal/graph"
	"github.com/seifer44/lexigraph/internal/platform/logger"
)

type sliceSource struct{ recs []Record }

func (s sliceSource) Emit(ctx context.Context, out chan<- Record) error {
	for _, r := range s.recs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- r:
		}
	}
	return nil
}

type stubExtractor struct{ concepts []domain.Concept }

func (s stubExtractor) Extract(domain.Chunk) []domain.Concept { return s.concepts }

type stubScorer struct {
	keep      bool
	predicate string
}

func (s stubScorer) Score(_ context.Context, cand domain.RelationCandidate) (domain.ScoredRelation, bool) {
	if !s.keep {
		return domain.ScoredRelation{}, false
	}
	return domain.ScoredRelation{
		A: cand.A, B: cand.B,
		Predicate:  s.predicate,
		Confidence: 0.9,
		Evidence:   cand.Evidence,
	}, true
}

type recordingSink struct {
	mu     sync.Mutex
	writes []graph.GraphWrite
	closed bool

	writeErr error
}

func (r *recordingSink) Write(_ context.Context, w graph.GraphWrite) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, w)
	return nil
}

func (r *recordingSink) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func singleSinkFactory(sink *recordingSink) SinkFactory {
	return func(context.Context) (WriteSink, error) { return sink, nil }
}

func countWrites(writes []graph.GraphWrite) (nodes map[string]int, edges map[string]int) {
	nodes = map[string]int{}
	edges = map[string]int{}
	for _, w := range writes {
		switch cmd := w.(type) {
		case graph.UpsertNode:
			nodes[cmd.Label]++
		case graph.UpsertEdge:
			edges[cmd.Rel]++
		}
	}
	return nodes, edges
}

func TestPipelineEndToEnd(t *testing.T) {
	concepts := []domain.Concept{
		extract.NewConcept("Neo4j", "NER"),
		extract.NewConcept("API", "acronym"),
	}
	sink := &recordingSink{}
	p := New(
		sliceSource{recs: []Record{{Data: []byte(validRecord), Path: "a.jsonl"}}},
		stubExtractor{concepts: concepts},
		stubScorer{keep: true, predicate: "uses"},
		singleSinkFactory(sink),
		1, 0,
		logger.NewNop(),
	)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	nodes, edges := countWrites(sink.writes)
	if nodes["Chunk"] != 1 {
		t.Fatalf("chunk nodes = %d", nodes["Chunk"])
	}
	if nodes["Concept"] != 2 {
		t.Fatalf("concept nodes = %d", nodes["Concept"])
	}
	if edges["MENTIONS"] != 2 {
		t.Fatalf("mention edges = %d", edges["MENTIONS"])
	}
	if edges["USES"] != 1 {
		t.Fatalf("relation edges = %d", edges["USES"])
	}
	if !sink.closed {
		t.Fatal("sink not closed")
	}
}

func TestPipelineDropsMalformedRecords(t *testing.T) {
	sink := &recordingSink{}
	p := New(
		sliceSource{recs: []Record{
			{Data: []byte(`not json`), Path: "a.jsonl"},
			{Data: []byte(validRecord), Path: "a.jsonl"},
		}},
		stubExtractor{concepts: []domain.Concept{extract.NewConcept("Neo4j", "NER")}},
		nil,
		singleSinkFactory(sink),
		1, 0,
		logger.NewNop(),
	)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	nodes, _ := countWrites(sink.writes)
	if nodes["Chunk"] != 1 {
		t.Fatalf("chunk nodes = %d, want the malformed record dropped", nodes["Chunk"])
	}
}

func TestPipelineNilScorerSkipsRelations(t *testing.T) {
	concepts := []domain.Concept{
		extract.NewConcept("Neo4j", "NER"),
		extract.NewConcept("API", "acronym"),
	}
	sink := &recordingSink{}
	p := New(
		sliceSource{recs: []Record{{Data: []byte(validRecord), Path: "a.jsonl"}}},
		stubExtractor{concepts: concepts},
		nil,
		singleSinkFactory(sink),
		1, 0,
		logger.NewNop(),
	)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, edges := countWrites(sink.writes)
	if edges["MENTIONS"] != 2 {
		t.Fatalf("mention edges = %d", edges["MENTIONS"])
	}
	delete(edges, "MENTIONS")
	if len(edges) != 0 {
		t.Fatalf("unexpected relation edges: %+v", edges)
	}
}

func TestPipelineScorerDropsAreSilent(t *testing.T) {
	concepts := []domain.Concept{
		extract.NewConcept("Neo4j", "NER"),
		extract.NewConcept("API", "acronym"),
	}
	sink := &recordingSink{}
	p := New(
		sliceSource{recs: []Record{{Data: []byte(validRecord), Path: "a.jsonl"}}},
		stubExtractor{concepts: concepts},
		stubScorer{keep: false},
		singleSinkFactory(sink),
		1, 0,
		logger.NewNop(),
	)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, edges := countWrites(sink.writes)
	delete(edges, "MENTIONS")
	if len(edges) != 0 {
		t.Fatalf("dropped candidates must not produce edges: %+v", edges)
	}
}

func TestPipelineSinkErrorIsFatal(t *testing.T) {
	sink := &recordingSink{writeErr: errors.New("commit exhausted")}
	p := New(
		sliceSource{recs: []Record{{Data: []byte(validRecord), Path: "a.jsonl"}}},
		stubExtractor{concepts: []domain.Concept{extract.NewConcept("Neo4j", "NER")}},
		nil,
		singleSinkFactory(sink),
		1, 0,
		logger.NewNop(),
	)

	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected sink failure to fail the run")
	}
}

func TestPipelineSinkFactoryErrorIsFatal(t *testing.T) {
	p := New(
		sliceSource{recs: nil},
		stubExtractor{},
		nil,
		func(context.Context) (WriteSink, error) { return nil, errors.New("no session") },
		2, 0,
		logger.NewNop(),
	)
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("expected sink factory failure to fail the run")
	}
}
