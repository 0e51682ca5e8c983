package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/offramp/internal/shared/logger"
	"github.com/orris-inc/offramp/internal/shared/version"
)

// Pinger is satisfied by the database and cache health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
	logger  logger.Interface
}

func NewHealthHandler(checks map[string]Pinger, logger logger.Interface) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second, logger: logger}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warnw("health check failed", "dependency", name, "error", err)
			deps[name] = "down"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	c.JSON(code, gin.H{
		"status":       status,
		"service":      "offramp",
		"dependencies": deps,
	})
}

// Version handles GET /version
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": version.Current,
		"commit":  version.Commit,
	})
}
