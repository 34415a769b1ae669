package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vidsage/video-intelligence-go/internal/events"
)

// Pinger checks database connectivity. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db        Pinger
	publisher events.Publisher
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. db may be nil when the service
// runs without persistence.
func NewHealthHandler(db Pinger, publisher events.Publisher, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		publisher: publisher,
		logger:    logger,
	}
}

// Live handles GET /health. It answers as long as the process is up.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready. It checks downstream dependencies.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("database ping failed", "error", err)
			checks["database"] = "DOWN"
			healthy = false
		} else {
			checks["database"] = "UP"
		}
	}

	if h.publisher.IsHealthy() {
		checks["events"] = "UP"
	} else {
		checks["events"] = "DOWN"
		healthy = false
	}

	status := http.StatusOK
	overall := "UP"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "DOWN"
	}

	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
