package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/contentanonymity/backend/internal/cache"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// Health reports the state of the database, Redis and Elasticsearch.
// Only the database is required; the others degrade the status.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{}
	status := "ok"
	code := http.StatusOK

	if err := h.pingDatabase(ctx); err != nil {
		checks["database"] = gin.H{"status": "down", "error": err.Error()}
		status = "down"
		code = http.StatusServiceUnavailable
	} else {
		checks["database"] = gin.H{"status": "up"}
	}

	if rc := cache.GetRedisClient(); rc == nil {
		checks["redis"] = gin.H{"status": "disabled"}
	} else if err := rc.Ping(ctx); err != nil {
		checks["redis"] = gin.H{"status": "down", "error": err.Error()}
		if status == "ok" {
			status = "degraded"
		}
	} else {
		checks["redis"] = gin.H{"status": "up"}
	}

	switch {
	case h.search == nil || !h.search.Enabled():
		checks["elasticsearch"] = gin.H{"status": "disabled"}
	default:
		if err := h.search.Ping(ctx); err != nil {
			checks["elasticsearch"] = gin.H{"status": "down", "error": err.Error()}
			if status == "ok" {
				status = "degraded"
			}
		} else {
			checks["elasticsearch"] = gin.H{"status": "up"}
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"service":   "contentanonymity-backend",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func (h *Handlers) pingDatabase(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
