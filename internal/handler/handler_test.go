package handler

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/gin-gonic/gin"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Type    string
	Payload interface{}
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Payload: payload})
	return nil
}

func (p *recordingPublisher) IsHealthy() bool { return true }
func (p *recordingPublisher) Close() error    { return nil }

func (p *recordingPublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedEvent, len(p.events))
	copy(out, p.events)
	return out
}
