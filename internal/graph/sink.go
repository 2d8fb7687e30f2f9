package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/seifer44/lexigraph/internal/platform/logger"
	"github.com/seifer44/lexigraph/internal/platform/neo4jdb"
)

// executor applies one batch of write commands atomically. The production
// executor wraps a Neo4j session; tests substitute fakes.
type executor interface {
	verify(ctx context.Context) error
	applyBatch(ctx context.Context, batch []GraphWrite) error
	close(ctx context.Context) error
}

// Sink batches graph writes and commits them transactionally with retry.
// A sink instance belongs to exactly one pipeline worker; flushes are
// serialized by construction. Endpoint MERGE makes commands commutative, so
// concurrent sinks may commit overlapping batches safely.
type Sink struct {
	exec       executor
	batchSize  int
	maxRetries int
	buf        []GraphWrite
	log        *logger.Logger
}

type SinkOptions struct {
	BatchSize  int
	MaxRetries int
}

func NewSink(client *neo4jdb.Client, opts SinkOptions, log *logger.Logger) *Sink {
	return newSink(&neo4jExecutor{client: client}, opts, log)
}

func newSink(exec executor, opts SinkOptions, log *logger.Logger) *Sink {
	batch := opts.BatchSize
	if batch < 1 {
		batch = 200
	}
	retries := opts.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &Sink{
		exec:       exec,
		batchSize:  batch,
		maxRetries: retries,
		buf:        make([]GraphWrite, 0, batch),
		log:        log.With("component", "GraphSink"),
	}
}

// Open establishes the session and smoke-tests it. Failure here is fatal to
// the worker; it must not start consuming.
func (s *Sink) Open(ctx context.Context) error {
	if err := s.exec.verify(ctx); err != nil {
		return fmt.Errorf("sink: open: %w", err)
	}
	return nil
}

// Write buffers one command, flushing when the buffer reaches batchSize.
func (s *Sink) Write(ctx context.Context, w GraphWrite) error {
	s.buf = append(s.buf, w)
	if len(s.buf) >= s.batchSize {
		return s.Flush(ctx)
	}
	return nil
}

// Flush commits the pending buffer in one transaction, retrying the whole
// batch with linear backoff. After exhaustion the sink is failed and the
// error surfaces to the pipeline controller.
func (s *Sink) Flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	batch := s.buf
	s.buf = s.buf[:0]

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := s.exec.applyBatch(ctx, batch); err != nil {
			lastErr = err
			s.log.Warn("Batch commit failed",
				"attempt", attempt, "max_retries", s.maxRetries,
				"batch_size", len(batch), "error", err)
			continue
		}
		s.log.Debug("Batch committed", "batch_size", len(batch))
		return nil
	}
	return fmt.Errorf("sink: commit failed after %d attempts: %w", s.maxRetries, lastErr)
}

// closeFlushTimeout bounds the final flush when the run context is already
// gone. SIGINT must not drop the tail batch.
const closeFlushTimeout = 30 * time.Second

// Close flushes the residual buffer, then tears the session down. The flush
// runs detached from the run context: cancellation ends the run, but buffered
// writes still reach the store.
func (s *Sink) Close(ctx context.Context) error {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeFlushTimeout)
	defer cancel()

	flushErr := s.Flush(flushCtx)
	if err := s.exec.close(flushCtx); err != nil && flushErr == nil {
		flushErr = err
	}
	return flushErr
}

// neo4jExecutor holds one session for the lifetime of its sink worker.
type neo4jExecutor struct {
	client  *neo4jdb.Client
	session neo4j.SessionWithContext
}

func (e *neo4jExecutor) verify(ctx context.Context) error {
	if e.client == nil || e.client.Driver == nil {
		return fmt.Errorf("neo4j client not initialized")
	}
	e.session = e.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: e.client.Database,
	})
	res, err := e.session.Run(ctx, "RETURN 1", nil)
	if err != nil {
		return fmt.Errorf("smoke test: %w", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return fmt.Errorf("smoke test: %w", err)
	}
	return nil
}

func (e *neo4jExecutor) applyBatch(ctx context.Context, batch []GraphWrite) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := e.session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, w := range batch {
			var (
				cypher string
				params map[string]any
			)
			switch cmd := w.(type) {
			case UpsertNode:
				cypher, params = nodeUpsertQuery(cmd)
			case UpsertEdge:
				cypher, params = edgeUpsertQuery(cmd, now)
			default:
				return nil, fmt.Errorf("unknown graph write %T", w)
			}
			res, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (e *neo4jExecutor) close(ctx context.Context) error {
	if e.session == nil {
		return nil
	}
	err := e.session.Close(ctx)
	e.session = nil
	return err
}

// nodeUpsertQuery merges the node by its label's id-property and overwrites
// every supplied property.
func nodeUpsertQuery(cmd UpsertNode) (string, map[string]any) {
	cypher := fmt.Sprintf(
		"MERGE (n:%s {%s: $id})\nSET n += $props",
		cmd.Label, idProperty(cmd.Label),
	)
	return cypher, map[string]any{"id": cmd.ID, "props": cmd.Props}
}

// edgeUpsertQuery merges both endpoints before the relationship so
// out-of-order arrivals create placeholder nodes that later upserts complete.
func edgeUpsertQuery(cmd UpsertEdge, now string) (string, map[string]any) {
	cypher := fmt.Sprintf(
		"MERGE (a:%s {%s: $fromId})\nMERGE (b:%s {%s: $toId})\nMERGE (a)-[r:%s]->(b)\nSET r += $props\nSET r.updatedAt = $now",
		cmd.FromLabel, idProperty(cmd.FromLabel),
		cmd.ToLabel, idProperty(cmd.ToLabel),
		RelType(cmd.Rel),
	)
	return cypher, map[string]any{
		"fromId": cmd.FromID,
		"toId":   cmd.ToID,
		"props":  cmd.Props,
		"now":    now,
	}
}
