package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/circuitbreaker"
	"github.com/aman-churiwal/hackathon-portal/internal/service"
	"github.com/gin-gonic/gin"
)

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type CacheStatus interface {
	CacheMetrics() circuitbreaker.Metrics
}

type RegistrationStatsReader interface {
	GetRegistrationStats(ctx context.Context) (*service.RegistrationStats, error)
}

// Handles health and status endpoints
type SystemHandler struct {
	checks    map[string]Pinger
	cache     CacheStatus
	stats     RegistrationStatsReader
	startedAt time.Time
	info      gin.H
}

func NewSystemHandler(checks map[string]Pinger, cache CacheStatus, stats RegistrationStatsReader, info gin.H) *SystemHandler {
	return &SystemHandler{
		checks:    checks,
		cache:     cache,
		stats:     stats,
		startedAt: time.Now(),
		info:      info,
	}
}

// Handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(gin.H, len(h.checks))
	healthy := true
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			log.Printf("%s health check failed: %v", name, err)
			checks[name] = false
			healthy = false
			continue
		}
		checks[name] = true
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "hackathon-portal",
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// Handles GET /admin/status
func (h *SystemHandler) Status(c *gin.Context) {
	stats, err := h.stats.GetRegistrationStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"portal":        "running",
		"uptime":        time.Since(h.startedAt).Seconds(),
		"registrations": stats,
		"cache_breaker": h.cache.CacheMetrics(),
		"config":        h.info,
		"timestamp":     time.Now().Unix(),
	})
}
