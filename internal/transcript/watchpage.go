package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
)

var playerResponsePattern = regexp.MustCompile(`(?s)ytInitialPlayerResponse\s*=\s*(\{.+?\});(?:\s*var\s|</script>)`)

// WatchPageClient scrapes the watch page HTML for the embedded player
// response and pulls caption tracks out of it.
type WatchPageClient struct {
	client  *http.Client
	baseURL string
}

func NewWatchPageClient(client *http.Client, baseURL string) *WatchPageClient {
	if baseURL == "" {
		baseURL = "https://www.youtube.com"
	}
	return &WatchPageClient{client: client, baseURL: baseURL}
}

func (c *WatchPageClient) Method() Method { return MethodWatchPage }

func (c *WatchPageClient) Fetch(ctx context.Context, videoID string, languages []string) (*Result, error) {
	html, err := fetchBody(ctx, c.client, c.baseURL+"/watch?v="+videoID, map[string]string{
		// Without the consent cookie EU egress gets an interstitial page
		// with no player response.
		"Cookie": "CONSENT=YES+cb; SOCS=CAI",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}

	m := playerResponsePattern.FindSubmatch(html)
	if m == nil {
		return nil, fmt.Errorf("no player response in watch page")
	}

	var pr playerResponse
	if err := json.Unmarshal(m[1], &pr); err != nil {
		return nil, fmt.Errorf("decode embedded player response: %w", err)
	}
	if s := pr.PlayabilityStatus.Status; s == "ERROR" {
		return nil, fmt.Errorf("video not found: %s", pr.PlayabilityStatus.Reason)
	}

	tracks := pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	track, ok := selectTrack(tracks, languages)
	if !ok {
		return nil, fmt.Errorf("no caption tracks in watch page")
	}

	segments, err := fetchTrack(ctx, c.client, track)
	if err != nil {
		return nil, err
	}
	return NewResult(videoID, segments, track.LanguageCode, MethodWatchPage, track.isAuto()), nil
}
