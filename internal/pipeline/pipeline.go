package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seifer44/lexigraph/internal/domain"
	"github.com/seifer44/lexigraph/internal/graph"
	"github.com/seifer44/lexigraph/internal/platform/logger"
	"github.com/seifer44/lexigraph/internal/relation"
)

// ConceptExtractor maps a chunk to its concept set (stage S3).
type ConceptExtractor interface {
	Extract(chunk domain.Chunk) []domain.Concept
}

// RelationScorer resolves one candidate into a kept relation (stage S5).
// The boolean is false when the candidate is dropped for any reason.
type RelationScorer interface {
	Score(ctx context.Context, cand domain.RelationCandidate) (domain.ScoredRelation, bool)
}

// WriteSink receives the worker's graph writes (stage S7). Each worker owns
// its own sink instance; Close flushes whatever is still buffered.
type WriteSink interface {
	Write(ctx context.Context, w graph.GraphWrite) error
	Close(ctx context.Context) error
}

// SinkFactory opens a ready-to-use sink for one worker. An error here is
// fatal: the worker must not start.
type SinkFactory func(ctx context.Context) (WriteSink, error)

// Pipeline wires the stages into a staged data-parallel dataflow: one reader
// goroutine feeds P workers, each of which extracts, pairs, scores, and
// writes through its own sink. Ordering is guaranteed only within a worker:
// chunk node, concept nodes, mention edges, then relation edges.
type Pipeline struct {
	Source      Source
	Extractor   ConceptExtractor
	Scorer      RelationScorer // nil disables relation scoring for the run
	Sinks       SinkFactory
	Stats       *relation.CorpusStats
	Parallelism int
	MinPMI      float64

	log *logger.Logger

	chunksProcessed atomic.Int64
	recordsDropped  atomic.Int64
	relationsKept   atomic.Int64
}

func New(src Source, ex ConceptExtractor, scorer RelationScorer, sinks SinkFactory, parallelism int, minPMI float64, log *logger.Logger) *Pipeline {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Pipeline{
		Source:      src,
		Extractor:   ex,
		Scorer:      scorer,
		Sinks:       sinks,
		Stats:       relation.NewCorpusStats(),
		Parallelism: parallelism,
		MinPMI:      minPMI,
		log:         log.With("component", "Pipeline"),
	}
}

// Run drives the pipeline to completion (bounded source) or cancellation
// (watch source). Per-record failures are logged and swallowed; sink commit
// exhaustion and source read failures cancel the whole run.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.New().String()
	log := p.log.With("run_id", runID)
	log.Info("Pipeline starting",
		"parallelism", p.Parallelism,
		"scoring_enabled", p.Scorer != nil,
	)

	records := make(chan Record, p.Parallelism*2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(records)
		return p.Source.Emit(gctx, records)
	})

	for i := 0; i < p.Parallelism; i++ {
		workerID := i + 1
		g.Go(func() error {
			return p.runWorker(gctx, workerID, records, log)
		})
	}

	err := g.Wait()
	log.Info("Pipeline finished",
		"chunks", p.chunksProcessed.Load(),
		"dropped_records", p.recordsDropped.Load(),
		"relations", p.relationsKept.Load(),
		"error", err,
	)
	return err
}

func (p *Pipeline) runWorker(ctx context.Context, workerID int, records <-chan Record, log *logger.Logger) error {
	wlog := log.With("worker_id", workerID)

	sink, err := p.Sinks(ctx)
	if err != nil {
		return fmt.Errorf("worker %d: open sink: %w", workerID, err)
	}

	for rec := range records {
		if ctx.Err() != nil {
			break
		}
		if err := p.processRecord(ctx, sink, rec, wlog); err != nil {
			_ = sink.Close(ctx)
			return fmt.Errorf("worker %d: %w", workerID, err)
		}
	}

	if err := sink.Close(ctx); err != nil {
		return fmt.Errorf("worker %d: close sink: %w", workerID, err)
	}
	return nil
}

// processRecord runs one record through parse, extract, materialize, pair,
// and score. The only errors it returns are sink failures; everything
// record-local is logged and dropped.
func (p *Pipeline) processRecord(ctx context.Context, sink WriteSink, rec Record, log *logger.Logger) error {
	chunk, err := ParseChunk(rec.Data)
	if err != nil {
		p.recordsDropped.Add(1)
		log.Warn("Dropping malformed record", "path", rec.Path, "error", err)
		return nil
	}

	concepts := p.Extractor.Extract(chunk)
	p.Stats.Observe(concepts)

	if err := sink.Write(ctx, graph.MaterializeChunk(chunk)); err != nil {
		return err
	}
	for _, c := range concepts {
		if err := sink.Write(ctx, graph.MaterializeConcept(c)); err != nil {
			return err
		}
	}
	for _, c := range concepts {
		m := domain.Mention{ChunkID: chunk.ChunkID, Concept: c}
		if err := sink.Write(ctx, graph.MaterializeMention(m)); err != nil {
			return err
		}
	}
	p.chunksProcessed.Add(1)

	if p.Scorer == nil {
		return nil
	}
	for _, cand := range relation.EnumeratePairs(chunk, concepts) {
		rel, ok := p.Scorer.Score(ctx, cand)
		if !ok {
			continue
		}
		if !p.Stats.Keep(rel.A.ConceptID, rel.B.ConceptID, p.MinPMI) {
			continue
		}
		if err := sink.Write(ctx, graph.MaterializeRelation(rel)); err != nil {
			return err
		}
		p.relationsKept.Add(1)
	}
	return nil
}
