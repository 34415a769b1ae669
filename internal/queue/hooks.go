package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vidsage/video-intelligence-go/internal/transcript"
)

// ExtractionCallback runs after a prefetch task produces a fresh transcript.
type ExtractionCallback func(ctx context.Context, result *transcript.Result) error

// CallbackManager fans a completed extraction out to registered callbacks
// (event publishing, cache warming).
type CallbackManager struct {
	callbacks []ExtractionCallback
	logger    *slog.Logger
	mu        sync.RWMutex
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager(logger *slog.Logger) *CallbackManager {
	return &CallbackManager{logger: logger}
}

// RegisterCallback adds a callback to run after each fresh extraction.
func (m *CallbackManager) RegisterCallback(cb ExtractionCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// TriggerCallbacks executes all registered callbacks sequentially. A failing
// callback is logged and does not stop the rest.
func (m *CallbackManager) TriggerCallbacks(ctx context.Context, result *transcript.Result) {
	m.mu.RLock()
	callbacks := make([]ExtractionCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.RUnlock()

	for i, cb := range callbacks {
		if err := cb(ctx, result); err != nil {
			m.logger.Warn("extraction callback failed",
				"index", i,
				"video_id", result.VideoID,
				"error", err,
			)
		}
	}
}

// CallbackCount returns the number of registered callbacks.
func (m *CallbackManager) CallbackCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.callbacks)
}
