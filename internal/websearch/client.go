// Package websearch wraps the search-augmented completion provider used for
// fact-checking chat answers against the live web.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
	"github.com/vidsage/video-intelligence-go/internal/config"
)

// Answer is a search-grounded completion with its source citations.
type Answer struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations,omitempty"`
}

// Client performs search-augmented completions.
type Client interface {
	// Search answers the question with live web grounding.
	Search(ctx context.Context, system, question string) (*Answer, error)
	// Enabled reports whether the provider is configured.
	Enabled() bool
}

type client struct {
	hc      *http.Client
	baseURL string
	apiKey  string
	model   string
	enabled bool
}

// New builds the client. A missing API key yields a disabled client; callers
// degrade to plain completions.
func New(cfg config.WebSearchConfig) Client {
	if cfg.APIKey == "" {
		return &client{enabled: false}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.perplexity.ai"
	}
	model := cfg.Model
	if model == "" {
		model = "sonar"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &client{
		hc:      &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		enabled: true,
	}
}

func (c *client) Enabled() bool { return c.enabled }

// chatResponse is the OpenAI-compatible completion body plus the citations
// array the search provider appends.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

func (c *client) Search(ctx context.Context, system, question string) (*Answer, error) {
	if !c.enabled {
		return nil, apperr.New(apperr.CodeFactCheckUnavailable, "web search provider not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": question},
		},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFactCheckUnavailable, "marshal search request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFactCheckUnavailable, "build search request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFactCheckUnavailable, "web search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.CodeFactCheckUnavailable,
			fmt.Sprintf("web search provider returned HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFactCheckUnavailable, "read search response", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperr.Wrap(apperr.CodeFactCheckUnavailable, "decode search response", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, apperr.New(apperr.CodeFactCheckUnavailable, "web search returned no answer")
	}

	return &Answer{
		Text:      parsed.Choices[0].Message.Content,
		Citations: parsed.Citations,
	}, nil
}
