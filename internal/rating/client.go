// Package rating queries the external content-reputation API and normalizes
// its scores for the discovery scorer.
package rating

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vidsage/video-intelligence-go/internal/cache"
	"github.com/vidsage/video-intelligence-go/internal/config"
)

// Neutral is the score used when the provider cannot answer; it neither
// boosts nor penalizes a channel.
const Neutral = 0.5

const cacheNamespace = "trusted_score"

// Client resolves a video's external quality score in [0,1], keyed by video
// so repeat discovery calls reuse the cached value.
type Client interface {
	// Score never fails: provider errors degrade to the neutral score.
	Score(ctx context.Context, videoID, channelName string) float64
}

type client struct {
	hc       *http.Client
	baseURL  string
	apiKey   string
	cache    cache.Cache
	cacheTTL time.Duration
	sem      *semaphore.Weighted
	logger   *slog.Logger
	enabled  bool
}

// New builds the client. Without an API key every lookup returns Neutral.
func New(cfg config.RatingConfig, store cache.Cache, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	parallel := cfg.MaxParallel
	if parallel <= 0 {
		parallel = 10
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &client{
		hc:       &http.Client{Timeout: 10 * time.Second},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		cache:    store,
		cacheTTL: ttl,
		sem:      semaphore.NewWeighted(int64(parallel)),
		logger:   logger,
		enabled:  cfg.APIKey != "" && cfg.BaseURL != "",
	}
}

func (c *client) Score(ctx context.Context, videoID, channelName string) float64 {
	if !c.enabled {
		return Neutral
	}

	key := cacheNamespace + ":" + videoID
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, key); ok {
			if score, err := strconv.ParseFloat(raw, 64); err == nil {
				return score
			}
		}
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return Neutral
	}
	defer c.sem.Release(1)

	score, err := c.fetch(ctx, videoID, channelName)
	if err != nil {
		c.logger.Warn("rating lookup failed, using neutral score",
			"video_id", videoID, "error", err)
		return Neutral
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, strconv.FormatFloat(score, 'f', 4, 64), c.cacheTTL)
	}
	return score
}

// fetch asks the provider for the raw score in [-100,100] and maps it onto
// [0,1] via (raw+100)/200.
func (c *client) fetch(ctx context.Context, videoID, channelName string) (float64, error) {
	payload, err := json.Marshal(map[string]string{
		"video_id":     videoID,
		"channel_name": channelName,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal rating request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/videos/score", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build rating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d from rating provider", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read rating response: %w", err)
	}

	var parsed struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("decode rating response: %w", err)
	}

	raw := parsed.Score
	if raw < -100 {
		raw = -100
	}
	if raw > 100 {
		raw = 100
	}
	return (raw + 100) / 200, nil
}
