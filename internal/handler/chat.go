package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
	"github.com/vidsage/video-intelligence-go/internal/chat"
	"github.com/vidsage/video-intelligence-go/internal/db/models"
	"github.com/vidsage/video-intelligence-go/internal/events"
	"github.com/vidsage/video-intelligence-go/internal/middleware"
)

// ChatService is the chat surface the handler needs.
type ChatService interface {
	Ask(ctx context.Context, req chat.AskRequest) (*chat.AskResponse, error)
	History(ctx context.Context, userID string, summaryID int64, limit int) ([]*models.ChatMessage, error)
	Quota(ctx context.Context, userID, plan string, summaryID int64) (*chat.QuotaStatus, error)
}

// ChatHandler exposes the summary Q&A endpoints.
type ChatHandler struct {
	service   ChatService
	publisher events.Publisher
	logger    *slog.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(service ChatService, publisher events.Publisher, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		service:   service,
		publisher: publisher,
		logger:    logger,
	}
}

type askRequest struct {
	Question     string `json:"question" binding:"required"`
	Mode         string `json:"mode"`
	UseWebSearch bool   `json:"use_web_search"`
}

type askResponse struct {
	Response        string            `json:"response"`
	Model           string            `json:"model"`
	EnrichmentLevel string            `json:"enrichment_level"`
	WebSearchUsed   bool              `json:"web_search_used"`
	Critical        bool              `json:"critical"`
	Sources         []string          `json:"sources,omitempty"`
	QuotaInfo       *chat.QuotaStatus `json:"quota_info,omitempty"`
}

// Ask handles POST /api/v1/chat/:summary_id.
func (h *ChatHandler) Ask(c *gin.Context) {
	summaryID, ok := summaryIDParam(c)
	if !ok {
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err))
		return
	}

	userID := c.GetString(middleware.ContextUserID)
	plan := c.GetString(middleware.ContextUserPlan)

	resp, err := h.service.Ask(c.Request.Context(), chat.AskRequest{
		SummaryID:         summaryID,
		UserID:            userID,
		Plan:              plan,
		Question:          req.Question,
		Mode:              chat.Mode(req.Mode),
		RequestEnrichment: req.UseWebSearch,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.publisher.Publish(c.Request.Context(), events.TypeChatAnswered, gin.H{
		"summary_id":   summaryID,
		"fact_checked": resp.FactChecked,
		"model":        resp.Model,
	}); err != nil {
		h.logger.Warn("failed to publish chat event", "summary_id", summaryID, "error", err)
	}

	// Quota is advisory here; the answer stands even if the lookup fails.
	quota, err := h.service.Quota(c.Request.Context(), userID, plan, summaryID)
	if err != nil {
		h.logger.Warn("failed to load quota status", "summary_id", summaryID, "error", err)
		quota = nil
	}

	c.JSON(http.StatusOK, askResponse{
		Response:        resp.Answer,
		Model:           resp.Model,
		EnrichmentLevel: string(resp.Level),
		WebSearchUsed:   resp.FactChecked,
		Critical:        resp.Critical,
		Sources:         resp.Sources,
		QuotaInfo:       quota,
	})
}

// History handles GET /api/v1/chat/:summary_id/history.
func (h *ChatHandler) History(c *gin.Context) {
	summaryID, ok := summaryIDParam(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(c, apperr.New(apperr.CodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	messages, err := h.service.History(c.Request.Context(), c.GetString(middleware.ContextUserID), summaryID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary_id": summaryID, "messages": messages})
}

// Quota handles GET /api/v1/chat/:summary_id/quota.
func (h *ChatHandler) Quota(c *gin.Context) {
	summaryID, ok := summaryIDParam(c)
	if !ok {
		return
	}

	status, err := h.service.Quota(c.Request.Context(),
		c.GetString(middleware.ContextUserID),
		c.GetString(middleware.ContextUserPlan),
		summaryID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func summaryIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("summary_id"), 10, 64)
	if err != nil || id < 1 {
		respondError(c, apperr.New(apperr.CodeInvalidInput, "summary_id must be a positive integer"))
		return 0, false
	}
	return id, true
}
