package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
	"github.com/vidsage/video-intelligence-go/internal/discovery"
	"github.com/vidsage/video-intelligence-go/internal/events"
)

// prefetchTopN is how many discovery results get their transcript queued.
const prefetchTopN = 5

// Discoverer runs a discovery request end to end.
type Discoverer interface {
	Discover(ctx context.Context, req discovery.Request) (*discovery.Response, error)
}

// Prefetcher schedules background transcript extraction.
type Prefetcher interface {
	EnqueuePrefetchBatch(ctx context.Context, videoIDs []string, source string, languages []string)
}

// DiscoveryHandler exposes video discovery over HTTP.
type DiscoveryHandler struct {
	orchestrator Discoverer
	prefetcher   Prefetcher
	publisher    events.Publisher
	logger       *slog.Logger
}

// NewDiscoveryHandler creates a DiscoveryHandler. prefetcher may be nil when
// no queue backend is configured.
func NewDiscoveryHandler(orchestrator Discoverer, prefetcher Prefetcher, publisher events.Publisher, logger *slog.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		orchestrator: orchestrator,
		prefetcher:   prefetcher,
		publisher:    publisher,
		logger:       logger,
	}
}

// Discover handles POST /api/v1/discovery.
func (h *DiscoveryHandler) Discover(c *gin.Context) {
	var req discovery.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err))
		return
	}

	resp, err := h.orchestrator.Discover(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.prefetcher != nil && len(resp.Candidates) > 0 {
		top := resp.Candidates
		if len(top) > prefetchTopN {
			top = top[:prefetchTopN]
		}
		videoIDs := make([]string, 0, len(top))
		for _, cand := range top {
			videoIDs = append(videoIDs, cand.VideoID)
		}
		h.prefetcher.EnqueuePrefetchBatch(c.Request.Context(), videoIDs, "discovery", resp.LanguagesSearched)
	}

	if err := h.publisher.Publish(c.Request.Context(), events.TypeDiscoveryCompleted, gin.H{
		"query":          req.Query,
		"results":        len(resp.Candidates),
		"total_searched": resp.TotalSearched,
	}); err != nil {
		h.logger.Warn("failed to publish discovery event", "error", err)
	}

	c.JSON(http.StatusOK, resp)
}
