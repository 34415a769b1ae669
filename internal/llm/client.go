// Package llm wraps the OpenAI-compatible completion backend with model
// routing and a concurrency ceiling.
package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/semaphore"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
	"github.com/vidsage/video-intelligence-go/internal/config"
)

// Client is the completion interface the discovery reformulator and the chat
// service depend on.
type Client interface {
	// Complete runs a chat completion against the named model. An empty
	// model falls back to the configured default.
	Complete(ctx context.Context, model string, messages []Message) (string, error)
	// DefaultModel is the cheap model used for routine requests.
	DefaultModel() string
	// ComplexModel is the stronger model used for analytical requests.
	ComplexModel() string
}

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// completionTemperature keeps outputs stable across retries.
const completionTemperature = 0.2

type client struct {
	api          *openai.Client
	defaultModel string
	complexModel string
	sem          *semaphore.Weighted
}

// New builds the client from configuration. BaseURL may point at any
// OpenAI-compatible endpoint.
func New(cfg config.LLMConfig) Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}

	parallel := cfg.MaxParallel
	if parallel <= 0 {
		parallel = 6
	}
	return &client{
		api:          openai.NewClientWithConfig(apiCfg),
		defaultModel: cfg.DefaultModel,
		complexModel: cfg.ComplexModel,
		sem:          semaphore.NewWeighted(int64(parallel)),
	}
}

func (c *client) DefaultModel() string { return c.defaultModel }
func (c *client) ComplexModel() string { return c.complexModel }

func (c *client) Complete(ctx context.Context, model string, messages []Message) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", apperr.Wrap(apperr.CodeLLMUnavailable, "completion backend saturated", err)
	}
	defer c.sem.Release(1)

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: completionTemperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeLLMUnavailable, "completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.CodeLLMUnavailable, "completion returned no choices")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", apperr.New(apperr.CodeLLMUnavailable, "completion returned empty content")
	}
	return content, nil
}

// SystemUser is a convenience constructor for the common two-message prompt.
func SystemUser(system, user string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}
