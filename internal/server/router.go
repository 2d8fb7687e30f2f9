package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/seifer44/lexigraph/internal/http/handlers"
	"github.com/seifer44/lexigraph/internal/http/middleware"
)

const serviceName = "lexigraph-query"

type Handlers struct {
	Health  *handlers.HealthHandler
	Concept *handlers.ConceptHandler
}

// NewRouter assembles the read-only query surface. All graph lookups live
// under /api; the healthcheck stays unversioned for load balancers.
func NewRouter(h Handlers) *gin.Engine {
	r := gin.Default()

	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.AttachTraceContext())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthcheck", h.Health.HealthCheck)

	api := r.Group("/api")
	{
		api.GET("/concepts", h.Concept.FindConcepts)
		api.GET("/concepts/:id", h.Concept.GetConcept)
		api.GET("/concepts/:id/evidence", h.Concept.GetEvidence)
		api.GET("/concepts/:id/neighbors", h.Concept.GetNeighbors)
		api.GET("/stats", h.Concept.GetStats)
	}

	return r
}
