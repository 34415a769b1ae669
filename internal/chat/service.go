package chat

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
	"github.com/vidsage/video-intelligence-go/internal/config"
	"github.com/vidsage/video-intelligence-go/internal/db"
	"github.com/vidsage/video-intelligence-go/internal/db/models"
	"github.com/vidsage/video-intelligence-go/internal/db/repository"
	"github.com/vidsage/video-intelligence-go/internal/llm"
	"github.com/vidsage/video-intelligence-go/internal/metrics"
	"github.com/vidsage/video-intelligence-go/internal/websearch"
)

// historyFetchLimit is how many stored messages are loaded per question; the
// prompt builder keeps its own smaller window.
const historyFetchLimit = 10

// AskRequest is one question against a summary.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AskRequest struct {
	SummaryID int64
	UserID    string
	Plan      string
	Question  string
	// Mode overrides the summary's stored response mode when set.
	Mode Mode
	// RequestEnrichment forces fact-checking when the plan allows it.
	RequestEnrichment bool
}

// AskResponse is the generated answer plus its enrichment metadata.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type AskResponse struct {
	Answer      string          `json:"answer"`
	Model       string          `json:"model"`
	Enriched    bool            `json:"enriched"`
	Level       EnrichmentLevel `json:"enrichment_level"`
	FactChecked bool            `json:"fact_checked"`
	Critical    bool            `json:"critical"`
	Sources     []string        `json:"sources,omitempty"`
}

// QuotaStatus reports a user's remaining allowance. -1 means unlimited.
type QuotaStatus struct {
	DailyLimit     int `json:"daily_limit"`
	DailyUsed      int `json:"daily_used"`
	VideoLimit     int `json:"video_limit"`
	VideoUsed      int `json:"video_used"`
	WebSearchLimit int `json:"web_search_limit"`
	WebSearchUsed  int `json:"web_search_used"`
}

// Service answers questions about summarized videos, enforcing plan quotas
// and fact-checking time-sensitive answers.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Service struct {
	summaries repository.SummaryRepository
	messages  repository.ChatMessageRepository
	usage     repository.UsageRepository
	llm       llm.Client
	search    websearch.Client
	plans     map[string]config.PlanLimits
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	// pending counts reserved questions not yet persisted, per user+summary,
	// so the per-video limit sees in-flight work.
	pending map[string]int
}

// NewService creates the chat service.
func NewService(
	summaries repository.SummaryRepository,
	messages repository.ChatMessageRepository,
	usage repository.UsageRepository,
	llmClient llm.Client,
	search websearch.Client,
	plans map[string]config.PlanLimits,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		summaries: summaries,
		messages:  messages,
		usage:     usage,
		llm:       llmClient,
		search:    search,
		plans:     plans,
		metrics:   m,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
		pending:   make(map[string]int),
	}
}

func (s *Service) planFor(plan string) config.PlanLimits {
	if limits, ok := s.plans[strings.ToLower(plan)]; ok {
		return limits
	}
	return s.plans["free"]
}

// userLock returns the mutex serializing one user's quota checks.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Ask answers one question about a summary. It checks quotas, generates the
// answer, optionally fact-checks it, and persists both turns.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "question must not be empty")
	}

	summary, err := s.loadOwnedSummary(ctx, req.UserID, req.SummaryID)
	if err != nil {
		return nil, err
	}

	limits := s.planFor(req.Plan)
	if err := s.reserveQuota(ctx, req.UserID, req.SummaryID, limits); err != nil {
		s.metrics.ChatRequests.WithLabelValues("quota").Inc()
		return nil, err
	}
	answered := false
	defer func() {
		if answered {
			s.adjustPending(req.UserID, req.SummaryID, -1)
		} else {
			s.releaseQuota(ctx, req.UserID, req.SummaryID)
		}
	}()

	history, err := s.messages.ListRecentMessages(ctx, req.SummaryID, historyFetchLimit)
	if err != nil {
		return nil, err
	}

	userRequested := req.RequestEnrichment && limits.WebSearchEnabled
	decision := decideEnrichment(question, strings.ToLower(req.Plan), userRequested,
		limits.DefaultModel, s.llm.ComplexModel())

	mode := req.Mode
	if mode == "" {
		mode = Mode(summary.Mode)
	}

	answer, err := s.llm.Complete(ctx, decision.Model, buildMessages(PromptInput{
		Question:   question,
		VideoTitle: summary.VideoTitle,
		Summary:    summary.SummaryText,
		Transcript: summary.TranscriptText,
		Language:   summary.Language,
		Mode:       mode,
		History:    toHistory(history),
	}))
	if err != nil {
		s.metrics.ChatRequests.WithLabelValues("llm_error").Inc()
		return nil, err
	}
	answer = cleanResponse(answer)

	resp := &AskResponse{
		Answer:   answer,
		Model:    decision.Model,
		Level:    decision.Level,
		Critical: decision.Critical,
	}

	if decision.Enrich {
		s.enrich(ctx, req.UserID, limits, decision, summary, question, resp)
	}
	// Warn when the decision said so up front, or when an intended
	// fact-check of a critical answer did not go through.
	if decision.Disclaimer || (decision.Enrich && decision.Critical && !resp.FactChecked) {
		resp.Answer += disclaimerFor(summary.Language)
	}

	if err := s.persistTurn(ctx, req, summary, question, resp); err != nil {
		return nil, err
	}
	answered = true

	s.metrics.ChatRequests.WithLabelValues("success").Inc()
	s.logger.Info("chat answered",
		"summary_id", req.SummaryID,
		"plan", req.Plan,
		"model", resp.Model,
		"enriched", resp.Enriched,
		"fact_checked", resp.FactChecked,
		"critical", resp.Critical,
	)

	return resp, nil
}

// loadOwnedSummary fetches a summary and verifies ownership. A summary owned
// by someone else is reported as not found.
func (s *Service) loadOwnedSummary(ctx context.Context, userID string, summaryID int64) (*models.Summary, error) {
	summary, err := s.summaries.GetSummary(ctx, summaryID)
	if db.IsNotFound(err) {
		return nil, apperr.New(apperr.CodeSummaryNotFound, "summary not found").
			WithContext("summary_id", summaryID)
	}
	if err != nil {
		return nil, err
	}
	if summary.UserID != userID {
		return nil, apperr.New(apperr.CodeSummaryNotFound, "summary not found").
			WithContext("summary_id", summaryID)
	}
	return summary, nil
}

// reserveQuota enforces the daily and per-video message limits and claims a
// slot, all under the user's lock: the daily counter is incremented before
// any expensive work, so two concurrent questions cannot both take the last
// slot. releaseQuota rolls the claim back when the question later fails.
func (s *Service) reserveQuota(ctx context.Context, userID string, summaryID int64, limits config.PlanLimits) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if limits.ChatDailyLimit >= 0 {
		used, err := s.usage.ChatMessagesToday(ctx, userID)
		if err != nil {
			return err
		}
		if used >= limits.ChatDailyLimit {
			return apperr.New(apperr.CodeDailyLimitReached, "daily chat limit reached").
				WithContext("limit", limits.ChatDailyLimit)
		}
	}

	if limits.ChatPerVideoLimit >= 0 {
		used, err := s.messages.CountUserMessages(ctx, userID, summaryID)
		if err != nil {
			return err
		}
		if used+s.pendingFor(userID, summaryID) >= limits.ChatPerVideoLimit {
			return apperr.New(apperr.CodeVideoLimitReached, "per-video chat limit reached").
				WithContext("limit", limits.ChatPerVideoLimit)
		}
	}

	if err := s.usage.IncrementChatUsage(ctx, userID); err != nil {
		return err
	}
	s.adjustPending(userID, summaryID, 1)
	return nil
}

// releaseQuota returns a reserved slot after a failed question.
func (s *Service) releaseQuota(ctx context.Context, userID string, summaryID int64) {
	if err := s.usage.DecrementChatUsage(ctx, userID); err != nil {
		s.logger.Warn("chat usage rollback failed", "user_id", userID, "error", err)
	}
	s.adjustPending(userID, summaryID, -1)
}

func pendingKey(userID string, summaryID int64) string {
	return userID + "/" + strconv.FormatInt(summaryID, 10)
}

func (s *Service) pendingFor(userID string, summaryID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[pendingKey(userID, summaryID)]
}

func (s *Service) adjustPending(userID string, summaryID int64, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pendingKey(userID, summaryID)
	if n := s.pending[key] + delta; n > 0 {
		s.pending[key] = n
	} else {
		delete(s.pending, key)
	}
}

// enrich runs the fact-check search and merges its findings into the answer.
// Failures degrade to the unenriched answer.
func (s *Service) enrich(ctx context.Context, userID string, limits config.PlanLimits, decision Decision, summary *models.Summary, question string, resp *AskResponse) {
	if !s.search.Enabled() {
		return
	}
	if limits.WebSearchMonthly >= 0 {
		used, err := s.usage.WebSearchesThisMonth(ctx, userID)
		if err != nil || used >= limits.WebSearchMonthly {
			return
		}
	}

	answer, err := s.search.Search(ctx, enrichmentSystemPrompt,
		buildEnrichmentQuestion(question, summary.VideoTitle, summary.SummaryText))
	if err != nil {
		s.logger.Warn("fact-check search failed", "summary_id", summary.ID, "error", err)
		return
	}

	s.metrics.WebSearchCalls.Inc()
	if err := s.usage.IncrementWebSearchUsage(ctx, userID); err != nil {
		s.logger.Warn("web search usage increment failed", "user_id", userID, "error", err)
	}

	resp.Enriched = true
	resp.FactChecked = true
	if text := strings.TrimSpace(answer.Text); text != "" {
		resp.Answer += "\n\n" + text
	}
	resp.Sources = answer.Citations
	if budget := decision.Level.MaxSources(); len(resp.Sources) > budget {
		resp.Sources = resp.Sources[:budget]
	}
}

// persistTurn stores the user question then the assistant answer with its
// enrichment metadata.
func (s *Service) persistTurn(ctx context.Context, req AskRequest, summary *models.Summary, question string, resp *AskResponse) error {
	userMsg := &models.ChatMessage{
		SummaryID: summary.ID,
		UserID:    req.UserID,
		Role:      models.ChatRoleUser,
		Content:   question,
	}
	if err := s.messages.CreateMessage(ctx, userMsg); err != nil {
		return err
	}

	assistantMsg := &models.ChatMessage{
		SummaryID:       summary.ID,
		UserID:          req.UserID,
		Role:            models.ChatRoleAssistant,
		Content:         resp.Answer,
		Enriched:        resp.Enriched,
		EnrichmentLevel: string(resp.Level),
		FactChecked:     resp.FactChecked,
		Sources:         resp.Sources,
		Model:           resp.Model,
		Critical:        resp.Critical,
	}
	return s.messages.CreateMessage(ctx, assistantMsg)
}

// History returns the trailing conversation for a summary the user owns.
func (s *Service) History(ctx context.Context, userID string, summaryID int64, limit int) ([]*models.ChatMessage, error) {
	if _, err := s.loadOwnedSummary(ctx, userID, summaryID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	return s.messages.ListRecentMessages(ctx, summaryID, limit)
}

// Quota reports the user's consumption against their plan limits for one
// summary.
func (s *Service) Quota(ctx context.Context, userID, plan string, summaryID int64) (*QuotaStatus, error) {
	if _, err := s.loadOwnedSummary(ctx, userID, summaryID); err != nil {
		return nil, err
	}

	limits := s.planFor(plan)

	daily, err := s.usage.ChatMessagesToday(ctx, userID)
	if err != nil {
		return nil, err
	}
	perVideo, err := s.messages.CountUserMessages(ctx, userID, summaryID)
	if err != nil {
		return nil, err
	}
	searches, err := s.usage.WebSearchesThisMonth(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &QuotaStatus{
		DailyLimit:     limits.ChatDailyLimit,
		DailyUsed:      daily,
		VideoLimit:     limits.ChatPerVideoLimit,
		VideoUsed:      perVideo,
		WebSearchLimit: limits.WebSearchMonthly,
		WebSearchUsed:  searches,
	}, nil
}

func toHistory(messages []*models.ChatMessage) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, HistoryMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
