package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmledger/internal/infrastructure/storage/postgres"
)

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolStatter exposes connection pool counters.
type PoolStatter interface {
	Stats() postgres.PoolStats
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db      Pinger
	cache   Pinger // optional
	pool    PoolStatter
	version string
}

// NewHealthHandler creates a new health handler. cache and pool may be nil.
func NewHealthHandler(db, cache Pinger, pool PoolStatter, version string) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, pool: pool, version: version}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
// A failing cache degrades the report but does not fail readiness.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	checks := map[string]string{}

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": checks,
		})
		return
	}
	checks["database"] = "healthy"

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = "degraded: " + err.Error()
		} else {
			checks["cache"] = "healthy"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": checks,
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "pharmledger",
		"version": h.version,
	}
	if h.pool != nil {
		stat := h.pool.Stats()
		body["database"] = map[string]any{
			"total_conns":    stat.TotalConns,
			"acquired_conns": stat.AcquiredConns,
			"idle_conns":     stat.IdleConns,
			"max_conns":      stat.MaxConns,
		}
	}
	c.JSON(http.StatusOK, body)
}
