package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
	"github.com/vidsage/video-intelligence-go/internal/events"
	"github.com/vidsage/video-intelligence-go/internal/transcript"
)

// Extractor is the transcript engine surface the handler needs.
type Extractor interface {
	Extract(ctx context.Context, videoRef string, languages ...string) (*transcript.Result, error)
	InvalidateCache(ctx context.Context, videoRef string) error
	Stats() transcript.Stats
	ResetStats()
}

// TranscriptHandler exposes transcript extraction over HTTP.
type TranscriptHandler struct {
	extractor Extractor
	publisher events.Publisher
	logger    *slog.Logger
}

// NewTranscriptHandler creates a TranscriptHandler.
func NewTranscriptHandler(extractor Extractor, publisher events.Publisher, logger *slog.Logger) *TranscriptHandler {
	return &TranscriptHandler{
		extractor: extractor,
		publisher: publisher,
		logger:    logger,
	}
}

type extractRequest struct {
	VideoURL  string   `json:"video_url" binding:"required"`
	Languages []string `json:"languages"`
}

type extractResponse struct {
	*transcript.Result
	TextTimestamped string `json:"text_timestamped"`
}

// Extract handles POST /api/v1/transcripts/extract.
func (h *TranscriptHandler) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err))
		return
	}

	result, err := h.extractor.Extract(c.Request.Context(), req.VideoURL, req.Languages...)
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.Cached {
		if err := h.publisher.Publish(c.Request.Context(), events.TypeTranscriptExtracted, gin.H{
			"video_id": result.VideoID,
			"method":   result.Method,
			"language": result.Language,
		}); err != nil {
			h.logger.Warn("failed to publish extraction event",
				"video_id", result.VideoID,
				"error", err,
			)
		}
	}

	c.JSON(http.StatusOK, extractResponse{
		Result:          result,
		TextTimestamped: result.TimestampedText(),
	})
}

// InvalidateCache handles DELETE /api/v1/transcripts/:video_id/cache.
func (h *TranscriptHandler) InvalidateCache(c *gin.Context) {
	videoID := c.Param("video_id")

	if err := h.extractor.InvalidateCache(c.Request.Context(), videoID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"video_id": videoID, "invalidated": true})
}

// Stats handles GET /api/v1/transcripts/stats.
func (h *TranscriptHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.extractor.Stats())
}

// ResetStats handles POST /api/v1/transcripts/stats/reset.
func (h *TranscriptHandler) ResetStats(c *gin.Context) {
	h.extractor.ResetStats()
	c.JSON(http.StatusOK, gin.H{"reset": true})
}
