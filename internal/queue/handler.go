package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
	"github.com/vidsage/video-intelligence-go/internal/transcript"
)

// PrefetchHandler processes transcript prefetch tasks.
type PrefetchHandler struct {
	extractor *transcript.Extractor
	callbacks *CallbackManager
	logger    *slog.Logger
}

// NewPrefetchHandler creates a prefetch task handler. callbacks may be nil.
func NewPrefetchHandler(extractor *transcript.Extractor, callbacks *CallbackManager, logger *slog.Logger) *PrefetchHandler {
	return &PrefetchHandler{
		extractor: extractor,
		callbacks: callbacks,
		logger:    logger,
	}
}

// ProcessTask implements asynq.HandlerFunc. A video with no obtainable
// transcript is a terminal outcome, not a retryable failure.
func (h *PrefetchHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalPrefetchTranscriptPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	h.logger.Info("processing transcript prefetch",
		"video_id", payload.VideoID,
		"source", payload.Source,
	)

	result, err := h.extractor.Extract(ctx, payload.VideoID, payload.Languages...)
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeTranscriptNotAvailable {
			h.logger.Warn("transcript not available, not retrying",
				"video_id", payload.VideoID,
				"error", err,
			)
			return fmt.Errorf("transcript not available for %s: %w", payload.VideoID, asynq.SkipRetry)
		}
		return fmt.Errorf("extract transcript for %s: %w", payload.VideoID, err)
	}

	if result.Cached {
		h.logger.Debug("transcript already cached", "video_id", payload.VideoID)
		return nil
	}

	h.logger.Info("transcript prefetched",
		"video_id", payload.VideoID,
		"method", result.Method,
		"language", result.Language,
		"extraction_time_ms", result.ExtractionTimeMs,
	)

	if h.callbacks != nil {
		h.callbacks.TriggerCallbacks(ctx, result)
	}

	return nil
}

// Server wraps the asynq worker that drains the prefetch queue.
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
	logger      *slog.Logger
}

// NewServer creates a task processing server.
func NewServer(redisURL string, concurrency int, handler *PrefetchHandler, logger *slog.Logger) (*Server, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueuePrefetch: 10,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePrefetchTranscript, handler.ProcessTask)

	return &Server{
		asynqServer: srv,
		mux:         mux,
		logger:      logger,
	}, nil
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	s.logger.Info("starting prefetch worker")
	return s.asynqServer.Start(s.mux)
}

// Stop gracefully stops the server.
func (s *Server) Stop() {
	s.logger.Info("shutting down prefetch worker")
	s.asynqServer.Shutdown()
}
