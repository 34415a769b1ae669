package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidsage/video-intelligence-go/internal/metrics"
	"github.com/vidsage/video-intelligence-go/internal/middleware"
)

// RouterConfig carries everything the HTTP router needs.
type RouterConfig struct {
	Auth       *middleware.APIKeyAuth
	Transcript *TranscriptHandler
	Discovery  *DiscoveryHandler
	Chat       *ChatHandler
	Health     *HealthHandler
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(cfg.Logger))

	r.GET("/health", cfg.Health.Live)
	r.GET("/ready", cfg.Health.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	api.Use(cfg.Auth.RequireAPIKey())
	{
		api.POST("/transcripts/extract", cfg.Transcript.Extract)
		api.DELETE("/transcripts/:video_id/cache", cfg.Transcript.InvalidateCache)
		api.GET("/transcripts/stats", cfg.Transcript.Stats)
		api.POST("/transcripts/stats/reset", cfg.Transcript.ResetStats)

		api.POST("/discovery", cfg.Discovery.Discover)

		api.POST("/chat/:summary_id", cfg.Chat.Ask)
		api.GET("/chat/:summary_id/history", cfg.Chat.History)
		api.GET("/chat/:summary_id/quota", cfg.Chat.Quota)
	}

	return r
}

// requestLogger logs each request with method, path, status and latency.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
