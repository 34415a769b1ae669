package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PaidAPIClient calls the commercial transcript API. It only participates in
// the rotation when an API key is configured.
type PaidAPIClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewPaidAPIClient(client *http.Client, baseURL, apiKey string) *PaidAPIClient {
	return &PaidAPIClient{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (c *PaidAPIClient) Method() Method { return MethodPaidAPI }

// Enabled reports whether the client has credentials.
func (c *PaidAPIClient) Enabled() bool { return c.apiKey != "" && c.baseURL != "" }

type paidAPIResponse struct {
	Transcript []struct {
		StartMs    int64  `json:"start_ms"`
		DurationMs int64  `json:"duration_ms"`
		Text       string `json:"text"`
	} `json:"transcript"`
	Language string `json:"language"`
	IsAuto   bool   `json:"is_auto_generated"`
}

func (c *PaidAPIClient) Fetch(ctx context.Context, videoID string, languages []string) (*Result, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("paid transcript api not configured")
	}

	lang := "en"
	if len(languages) > 0 {
		lang = languages[0]
	}
	payload, err := json.Marshal(map[string]string{
		"video_id": videoID,
		"language": lang,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/youtube/transcript", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build transcript request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from paid transcript api", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read transcript response: %w", err)
	}

	var parsed paidAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode transcript response: %w", err)
	}
	if len(parsed.Transcript) == 0 {
		return nil, fmt.Errorf("no transcript in paid api response")
	}

	segments := make([]Segment, 0, len(parsed.Transcript))
	for _, cue := range parsed.Transcript {
		text := cleanCueText(cue.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start:    time.Duration(cue.StartMs) * time.Millisecond,
			Duration: time.Duration(cue.DurationMs) * time.Millisecond,
			Text:     text,
		})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("paid api transcript contained no spoken content")
	}

	language := parsed.Language
	if language == "" {
		language = lang
	}
	return NewResult(videoID, segments, language, MethodPaidAPI, parsed.IsAuto), nil
}
