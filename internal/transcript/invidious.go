package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vidsage/video-intelligence-go/internal/resilience"
)

// InvidiousClient extracts captions through public Invidious mirrors,
// rotating across instances ordered by the shared health registry.
type InvidiousClient struct {
	client    *http.Client
	instances []string
	health    *resilience.InstanceHealthRegistry
	maxTry    int
}

func NewInvidiousClient(client *http.Client, instances []string, health *resilience.InstanceHealthRegistry, maxTry int) *InvidiousClient {
	if maxTry <= 0 {
		maxTry = 3
	}
	return &InvidiousClient{client: client, instances: instances, health: health, maxTry: maxTry}
}

func (c *InvidiousClient) Method() Method { return MethodInvidious }

type invidiousCaption struct {
	Label        string `json:"label"`
	LanguageCode string `json:"language_code"`
	URL          string `json:"url"`
}

func (c *InvidiousClient) Fetch(ctx context.Context, videoID string, languages []string) (*Result, error) {
	ordered := c.health.HealthyFirst(c.instances)
	if len(ordered) == 0 {
		return nil, fmt.Errorf("no invidious instances configured")
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
	return nil, fmt.Errorf("all invidious instances failed: %w", lastErr)
}

func (c *InvidiousClient) fetchFrom(ctx context.Context, instance, videoID string, languages []string) (*Result, error) {
	base := strings.TrimRight(instance, "/")

	body, err := fetchBody(ctx, c.client, base+"/api/v1/captions/"+videoID, nil)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Captions []invidiousCaption `json:"captions"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode captions listing: %w", err)
	}
	if len(listing.Captions) == 0 {
		return nil, fmt.Errorf("no caption tracks listed")
	}

	track := pickInvidiousCaption(listing.Captions, languages)

	vtt, err := fetchBody(ctx, c.client, base+track.URL, nil)
	if err != nil {
		return nil, err
	}
	segments, err := ParseVTT(string(vtt))
	if err != nil {
		return nil, err
	}

	auto := strings.Contains(strings.ToLower(track.Label), "auto")
	return NewResult(videoID, segments, track.LanguageCode, MethodInvidious, auto), nil
}

func pickInvidiousCaption(captions []invidiousCaption, languages []string) invidiousCaption {
	for _, lang := range languages {
		for _, candidate := range captions {
			if strings.HasPrefix(candidate.LanguageCode, lang) {
				return candidate
			}
		}
	}
	return captions[0]
}
