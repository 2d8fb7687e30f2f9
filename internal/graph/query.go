package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/seifer44/lexigraph/internal/platform/apperr"
	"github.com/seifer44/lexigraph/internal/platform/logger"
	"github.com/seifer44/lexigraph/internal/platform/neo4jdb"
)

// ConceptView is the query surface's projection of a Concept node.
type ConceptView struct {
	ConceptID string `json:"conceptId"`
	Lemma     string `json:"lemma"`
	Surface   string `json:"surface"`
	Origin    string `json:"origin"`
}

// EvidenceView is one chunk that mentions a concept, with its provenance.
type EvidenceView struct {
	ChunkID   string `json:"chunkId"`
	DocID     string `json:"docId"`
	Text      string `json:"text"`
	SourceURI string `json:"sourceUri"`
	SpanStart int64  `json:"spanStart"`
	SpanEnd   int64  `json:"spanEnd"`
}

// NeighborView is one related concept plus the relation that connects it.
type NeighborView struct {
	Concept    ConceptView `json:"concept"`
	Predicate  string      `json:"predicate"`
	Confidence float64     `json:"confidence"`
}

// GraphStats is a coarse health view over the populated graph.
type GraphStats struct {
	Chunks    int64 `json:"chunks"`
	Concepts  int64 `json:"concepts"`
	Mentions  int64 `json:"mentions"`
	Relations int64 `json:"relations"`
}

// QueryService answers fixed parametric lookups over the populated graph.
// It opens one read session per call; the pipeline and the query surface
// share nothing but the database.
type QueryService struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewQueryService(client *neo4jdb.Client, log *logger.Logger) *QueryService {
	return &QueryService{
		client: client,
		log:    log.With("service", "GraphQuery"),
	}
}

func (q *QueryService) readSession(ctx context.Context) neo4j.SessionWithContext {
	return q.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: q.client.Database,
	})
}

func (q *QueryService) ConceptByID(ctx context.Context, conceptID string) (*ConceptView, error) {
	session := q.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Concept {conceptId: $id})
RETURN c.conceptId AS conceptId, c.lemma AS lemma, c.surface AS surface, c.origin AS origin
`, map[string]any{"id": conceptID})
		if err != nil {
			return nil, err
		}
		rec, err := firstRecord(ctx, res)
		if err != nil {
			return nil, err
		}
		return conceptFromRecord(rec), nil
	})
	if err != nil {
		return nil, err
	}
	view := result.(ConceptView)
	return &view, nil
}

func (q *QueryService) ConceptsByLemma(ctx context.Context, lemma string) ([]ConceptView, error) {
	session := q.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Concept {lemma: $lemma})
RETURN c.conceptId AS conceptId, c.lemma AS lemma, c.surface AS surface, c.origin AS origin
`, map[string]any{"lemma": lemma})
		if err != nil {
			return nil, err
		}
		var views []ConceptView
		for res.Next(ctx) {
			views = append(views, conceptFromRecord(res.Record()))
		}
		return views, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]ConceptView), nil
}

// Evidence returns the chunks that mention the concept, newest write first is
// not guaranteed; ordering is by chunkId for stable pagination.
func (q *QueryService) Evidence(ctx context.Context, conceptID string, limit int) ([]EvidenceView, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if _, err := q.ConceptByID(ctx, conceptID); err != nil {
		return nil, err
	}

	session := q.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (ch:Chunk)-[:MENTIONS]->(c:Concept {conceptId: $id})
RETURN ch.chunkId AS chunkId, ch.docId AS docId, ch.text AS text,
       ch.sourceUri AS sourceUri, ch.spanStart AS spanStart, ch.spanEnd AS spanEnd
ORDER BY chunkId
LIMIT $limit
`, map[string]any{"id": conceptID, "limit": limit})
		if err != nil {
			return nil, err
		}
		var views []EvidenceView
		for res.Next(ctx) {
			rec := res.Record()
			views = append(views, EvidenceView{
				ChunkID:   stringValue(rec, "chunkId"),
				DocID:     stringValue(rec, "docId"),
				Text:      stringValue(rec, "text"),
				SourceURI: stringValue(rec, "sourceUri"),
				SpanStart: intValue(rec, "spanStart"),
				SpanEnd:   intValue(rec, "spanEnd"),
			})
		}
		return views, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]EvidenceView), nil
}

// Neighbors walks typed concept-to-concept relations around the given
// concept. Depth is clamped to 1 or 2; MENTIONS edges never qualify because
// they terminate at Chunk nodes.
func (q *QueryService) Neighbors(ctx context.Context, conceptID string, depth, limit int) ([]NeighborView, error) {
	if depth < 1 {
		depth = 1
	}
	if depth > 2 {
		depth = 2
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	if _, err := q.ConceptByID(ctx, conceptID); err != nil {
		return nil, err
	}

	session := q.readSession(ctx)
	defer session.Close(ctx)

	// Variable-length bounds cannot be parameterized; depth is clamped above.
	cypher := fmt.Sprintf(`
MATCH (c:Concept {conceptId: $id})-[rels*1..%d]-(n:Concept)
WHERE n.conceptId <> $id
WITH n, last(rels) AS r
RETURN DISTINCT n.conceptId AS conceptId, n.lemma AS lemma, n.surface AS surface, n.origin AS origin,
       type(r) AS predicate, coalesce(r.confidence, 0.0) AS confidence
LIMIT $limit
`, depth)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"id": conceptID, "limit": limit})
		if err != nil {
			return nil, err
		}
		var views []NeighborView
		for res.Next(ctx) {
			rec := res.Record()
			views = append(views, NeighborView{
				Concept:    conceptFromRecord(rec),
				Predicate:  stringValue(rec, "predicate"),
				Confidence: floatValue(rec, "confidence"),
			})
		}
		return views, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]NeighborView), nil
}

func (q *QueryService) Stats(ctx context.Context) (*GraphStats, error) {
	session := q.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (ch:Chunk) WITH count(ch) AS chunks
MATCH (c:Concept) WITH chunks, count(c) AS concepts
OPTIONAL MATCH ()-[m:MENTIONS]->() WITH chunks, concepts, count(m) AS mentions
OPTIONAL MATCH (:Concept)-[r]->(:Concept)
RETURN chunks, concepts, mentions, count(r) AS relations
`, nil)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return GraphStats{
			Chunks:    intValue(rec, "chunks"),
			Concepts:  intValue(rec, "concepts"),
			Mentions:  intValue(rec, "mentions"),
			Relations: intValue(rec, "relations"),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	stats := result.(GraphStats)
	return &stats, nil
}

// recordStream is the slice of the driver result firstRecord consumes.
type recordStream interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// firstRecord separates "no rows" from stream failures: only a clean empty
// result maps to ErrNotFound, a broken read keeps its own error.
func firstRecord(ctx context.Context, res recordStream) (*neo4j.Record, error) {
	if res.Next(ctx) {
		return res.Record(), nil
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return nil, apperr.ErrNotFound
}

func conceptFromRecord(rec *neo4j.Record) ConceptView {
	return ConceptView{
		ConceptID: stringValue(rec, "conceptId"),
		Lemma:     stringValue(rec, "lemma"),
		Surface:   stringValue(rec, "surface"),
		Origin:    stringValue(rec, "origin"),
	}
}

func stringValue(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	i, _ := v.(int64)
	return i
}

func floatValue(rec *neo4j.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}
