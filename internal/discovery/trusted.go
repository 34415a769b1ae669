package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/vidsage/video-intelligence-go/internal/config"
)

// trustedSplicePosition is where the guaranteed pick lands (0-indexed).
const trustedSplicePosition = 2

// trustedWindow is how deep the guarantee looks for an existing trusted pick.
const trustedWindow = 5

// seedPick is one curated fallback recommendation.
type seedPick struct {
	VideoID     string
	Title       string
	ChannelID   string
	ChannelName string
}

// seedPicks is the curated fallback list used when the recommendation API is
// silent. Kept deliberately small; ops can retire entries as videos age out.
var seedPicks = []seedPick{
	{VideoID: "xuCn8ux2gbs", Title: "history of the entire world, i guess", ChannelID: "UCR0O-1cvuPNxDosvSDLpWHg", ChannelName: "bill wurtz"},
	{VideoID: "0e3GPea1Tyg", Title: "$456,000 Squid Game In Real Life!", ChannelID: "UCX6OQ3DkcsbYNE6H8uQQuVA", ChannelName: "MrBeast"},
	{VideoID: "aircAruvnKk", Title: "But what is a neural network?", ChannelID: "UCYO_jab_esuFRV4b17AJtAw", ChannelName: "3Blue1Brown"},
	{VideoID: "wupToqz1e2g", Title: "The Fermi Paradox", ChannelID: "UCsXVk37bltHxD1rDPwtNM8Q", ChannelName: "Kurzgesagt"},
	{VideoID: "HeQX2HjkcNo", Title: "Math Has a Fatal Flaw", ChannelID: "UCHnyfMqiRRG1u-2MsSQLbXA", ChannelName: "Veritasium"},
}

// TrustedInjector guarantees a trusted pick near the top of the result set.
type TrustedInjector struct {
	hc      *http.Client
	baseURL string
	apiKey  string
	seeds   []seedPick
	logger  *slog.Logger
}

func NewTrustedInjector(cfg config.RatingConfig, logger *slog.Logger) *TrustedInjector {
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustedInjector{
		hc:      &http.Client{Timeout: 10 * time.Second},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		seeds:   seedPicks,
		logger:  logger,
	}
}

// Ensure returns the candidate list with at least one trusted pick in the
// first five positions, splicing one in at position 3 when missing.
func (t *TrustedInjector) Ensure(ctx context.Context, candidates []VideoCandidate, query string) []VideoCandidate {
	if len(candidates) == 0 {
		return candidates
	}
	window := trustedWindow
	if len(candidates) < window {
		window = len(candidates)
	}
	for _, c := range candidates[:window] {
		if c.IsTrustedPick {
			return candidates
		}
	}

	present := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		present[c.VideoID] = struct{}{}
	}

	pick, ok := t.recommend(ctx, query, present)
	if !ok {
		return candidates
	}

	pos := trustedSplicePosition
	if pos > len(candidates) {
		pos = len(candidates)
	}
	out := make([]VideoCandidate, 0, len(candidates)+1)
	out = append(out, candidates[:pos]...)
	out = append(out, pick)
	out = append(out, candidates[pos:]...)
	return out
}

// recommend asks the external API for a pick scoped to the query, falling
// back to the first seed not already present.
func (t *TrustedInjector) recommend(ctx context.Context, query string, present map[string]struct{}) (VideoCandidate, bool) {
	if pick, ok := t.fromAPI(ctx, query, present); ok {
		return pick, true
	}
	for _, seed := range t.seeds {
		if _, dup := present[seed.VideoID]; dup {
			continue
		}
		return t.asCandidate(seed.VideoID, seed.Title, seed.ChannelID, seed.ChannelName), true
	}
	return VideoCandidate{}, false
}

func (t *TrustedInjector) fromAPI(ctx context.Context, query string, present map[string]struct{}) (VideoCandidate, bool) {
	if t.apiKey == "" || t.baseURL == "" {
		return VideoCandidate{}, false
	}

	endpoint := t.baseURL + "/v1/recommendations?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return VideoCandidate{}, false
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.hc.Do(req)
	if err != nil {
		t.logger.Warn("trusted recommendation lookup failed, using seed list", "error", err)
		return VideoCandidate{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.logger.Warn("trusted recommendation lookup failed, using seed list",
			"error", fmt.Sprintf("HTTP %d", resp.StatusCode))
		return VideoCandidate{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return VideoCandidate{}, false
	}

	var parsed struct {
		Recommendations []struct {
			VideoID     string `json:"video_id"`
			Title       string `json:"title"`
			ChannelID   string `json:"channel_id"`
			ChannelName string `json:"channel_name"`
		} `json:"recommendations"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return VideoCandidate{}, false
	}

	for _, rec := range parsed.Recommendations {
		if rec.VideoID == "" {
			continue
		}
		if _, dup := present[rec.VideoID]; dup {
			continue
		}
		return t.asCandidate(rec.VideoID, rec.Title, rec.ChannelID, rec.ChannelName), true
	}
	return VideoCandidate{}, false
}

func (t *TrustedInjector) asCandidate(videoID, title, channelID, channelName string) VideoCandidate {
	return VideoCandidate{
		VideoID:       videoID,
		Title:         title,
		ChannelID:     channelID,
		ChannelName:   channelName,
		FinalScore:    100.0,
		IsTrustedPick: true,
		AxisScores:    AxisScores{ExternalQuality: 1.0},
	}
}
