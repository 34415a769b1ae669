package transcript

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CaptionAPIClient hits the public timedtext endpoint directly. It is the
// cheapest method but only works for videos with listed caption tracks.
type CaptionAPIClient struct {
	client  *http.Client
	baseURL string
}

// NewCaptionAPIClient creates the timedtext client. baseURL overrides the
// production endpoint in tests.
func NewCaptionAPIClient(client *http.Client, baseURL string) *CaptionAPIClient {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &CaptionAPIClient{client: client, baseURL: baseURL}
}

func (c *CaptionAPIClient) Method() Method { return MethodCaptionAPI }

// Fetch tries each preferred language against the timedtext endpoint, manual
// tracks first and auto-generated (kind=asr) second.
func (c *CaptionAPIClient) Fetch(ctx context.Context, videoID string, languages []string) (*Result, error) {
	var lastErr error
	for _, auto := range []bool{false, true} {
		for _, lang := range languages {
			segments, err := c.fetchLang(ctx, videoID, lang, auto)
			if err != nil {
				lastErr = err
				continue
			}
			return NewResult(videoID, segments, lang, MethodCaptionAPI, auto), nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no preferred languages configured")
	}
	return nil, fmt.Errorf("no caption track via timedtext: %w", lastErr)
}

func (c *CaptionAPIClient) fetchLang(ctx context.Context, videoID, lang string, auto bool) ([]Segment, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)
	q.Set("fmt", "json3")
	if auto {
		q.Set("kind", "asr")
	}

	body, err := fetchBody(ctx, c.client, c.baseURL+"/api/timedtext?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	// The endpoint answers 200 with an empty body when the track is missing.
	if len(body) == 0 {
		return nil, fmt.Errorf("no caption track for lang %s", lang)
	}
	return ParseJSON3(body)
}
