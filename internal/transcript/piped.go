package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vidsage/video-intelligence-go/internal/resilience"
)

// PipedClient extracts captions through public Piped API mirrors.
type PipedClient struct {
	client    *http.Client
	instances []string
	health    *resilience.InstanceHealthRegistry
	maxTry    int
}

func NewPipedClient(client *http.Client, instances []string, health *resilience.InstanceHealthRegistry, maxTry int) *PipedClient {
	if maxTry <= 0 {
		maxTry = 3
	}
	return &PipedClient{client: client, instances: instances, health: health, maxTry: maxTry}
}

func (c *PipedClient) Method() Method { return MethodPiped }

type pipedSubtitle struct {
	URL           string `json:"url"`
	Code          string `json:"code"`
	AutoGenerated bool   `json:"autoGenerated"`
}

func (c *PipedClient) Fetch(ctx context.Context, videoID string, languages []string) (*Result, error) {
	ordered := c.health.HealthyFirst(c.instances)
	if len(ordered) == 0 {
		return nil, fmt.Errorf("no piped instances configured")
	}
	if len(ordered) > c.maxTry {
		ordered = ordered[:c.maxTry]
	}

	var lastErr error
	for _, instance := range ordered {
		result, err := c.fetchFrom(ctx, instance, videoID, languages)
		if err != nil {
			c.health.RecordFailure(instance)
			lastErr = fmt.Errorf("%s: %w", instance, err)
			continue
		}
		c.health.RecordSuccess(instance)
		return result, nil
	}
	return nil, fmt.Errorf("all piped instances failed: %w", lastErr)
}

func (c *PipedClient) fetchFrom(ctx context.Context, instance, videoID string, languages []string) (*Result, error) {
	base := strings.TrimRight(instance, "/")

	body, err := fetchBody(ctx, c.client, base+"/streams/"+videoID, nil)
	if err != nil {
		return nil, err
	}

	var streams struct {
		Subtitles []pipedSubtitle `json:"subtitles"`
	}
	if err := json.Unmarshal(body, &streams); err != nil {
		return nil, fmt.Errorf("decode streams response: %w", err)
	}
	if len(streams.Subtitles) == 0 {
		return nil, fmt.Errorf("no subtitle tracks listed")
	}

	sub := pickPipedSubtitle(streams.Subtitles, languages)

	raw, err := fetchBody(ctx, c.client, sub.URL, nil)
	if err != nil {
		return nil, err
	}
	segments, err := ParseVTT(string(raw))
	if err != nil {
		// Piped proxies the upstream track; some tracks come back as srt.
		segments, err = ParseSRT(string(raw))
		if err != nil {
			return nil, err
		}
	}

	return NewResult(videoID, segments, sub.Code, MethodPiped, sub.AutoGenerated), nil
}

func pickPipedSubtitle(subs []pipedSubtitle, languages []string) pipedSubtitle {
	// Manual tracks in preferred language order first, then auto tracks.
	for _, auto := range []bool{false, true} {
		for _, lang := range languages {
			for _, sub := range subs {
				if sub.AutoGenerated == auto && strings.HasPrefix(sub.Code, lang) {
					return sub
				}
			}
		}
	}
	return subs[0]
}
