package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	redisclient "github.com/seifer44/lexigraph/internal/clients/redis"
	"github.com/seifer44/lexigraph/internal/graph"
	"github.com/seifer44/lexigraph/internal/http/response"
	"github.com/seifer44/lexigraph/internal/platform/apperr"
	"github.com/seifer44/lexigraph/internal/platform/logger"
)

// ConceptQueries is the slice of the graph query service the handler needs.
// Tests stub it; production passes *graph.QueryService.
type ConceptQueries interface {
	ConceptByID(ctx context.Context, conceptID string) (*graph.ConceptView, error)
	ConceptsByLemma(ctx context.Context, lemma string) ([]graph.ConceptView, error)
	Evidence(ctx context.Context, conceptID string, limit int) ([]graph.EvidenceView, error)
	Neighbors(ctx context.Context, conceptID string, depth, limit int) ([]graph.NeighborView, error)
	Stats(ctx context.Context) (*graph.GraphStats, error)
}

type ConceptHandler struct {
	queries ConceptQueries
	cache   *redisclient.QueryCache
	log     *logger.Logger
}

func NewConceptHandler(queries ConceptQueries, cache *redisclient.QueryCache, log *logger.Logger) *ConceptHandler {
	return &ConceptHandler{
		queries: queries,
		cache:   cache,
		log:     log.With("handler", "Concept"),
	}
}

func (h *ConceptHandler) GetConcept(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", "missing concept id")
		return
	}

	if h.respondFromCache(c, "concept:"+id) {
		return
	}

	view, err := h.queries.ConceptByID(c.Request.Context(), id)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	h.respondCached(c, "concept:"+id, view)
}

func (h *ConceptHandler) FindConcepts(c *gin.Context) {
	lemma := c.Query("lemma")
	if lemma == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", "lemma query parameter is required")
		return
	}

	views, err := h.queries.ConceptsByLemma(c.Request.Context(), lemma)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"concepts": views})
}

func (h *ConceptHandler) GetEvidence(c *gin.Context) {
	id := c.Param("id")
	limit := intQuery(c, "limit", 50)

	views, err := h.queries.Evidence(c.Request.Context(), id, limit)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"conceptId": id, "evidence": views})
}

func (h *ConceptHandler) GetNeighbors(c *gin.Context) {
	id := c.Param("id")
	depth := intQuery(c, "depth", 1)
	limit := intQuery(c, "limit", 50)

	views, err := h.queries.Neighbors(c.Request.Context(), id, depth, limit)
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"conceptId": id, "neighbors": views})
}

func (h *ConceptHandler) GetStats(c *gin.Context) {
	stats, err := h.queries.Stats(c.Request.Context())
	if err != nil {
		h.respondQueryError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// respondQueryError maps graph errors onto the wire envelope. Internal
// failures are logged with detail but answered generically; stack traces and
// driver messages never reach the client.
func (h *ConceptHandler) respondQueryError(c *gin.Context, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, "not_found", "concept not found")
		return
	}
	if errors.Is(err, apperr.ErrInvalidArgument) {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", "invalid request")
		return
	}
	if errors.Is(err, apperr.ErrUnavailable) {
		response.RespondError(c, http.StatusServiceUnavailable, "unavailable", "backing store unavailable")
		return
	}
	h.log.Error("Graph query failed", "path", c.FullPath(), "error", err)
	response.RespondError(c, http.StatusInternalServerError, "internal", "internal error")
}

func (h *ConceptHandler) respondFromCache(c *gin.Context, key string) bool {
	raw, ok := h.cache.Get(c.Request.Context(), key)
	if !ok {
		return false
	}
	c.Data(http.StatusOK, "application/json", raw)
	return true
}

func (h *ConceptHandler) respondCached(c *gin.Context, key string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		response.RespondOK(c, payload)
		return
	}
	h.cache.Set(c.Request.Context(), key, raw)
	c.Data(http.StatusOK, "application/json", raw)
}

func intQuery(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
