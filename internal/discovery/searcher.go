package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// searchTimeout bounds one yt-dlp search invocation.
const searchTimeout = 25 * time.Second

// maxConcurrentSearches bounds the subprocess fan-out across one request.
const maxConcurrentSearches = 6

// defaultResultsPerSearch is how many hits each variant contributes to the
// candidate pool.
const defaultResultsPerSearch = 10

// Searcher runs YouTube searches through yt-dlp's ytsearch pseudo-URL.
type Searcher struct {
	path      string
	perSearch int
	sem       *semaphore.Weighted
	logger    *slog.Logger

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewSearcher(ytdlpPath string, perSearch int, logger *slog.Logger) *Searcher {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	if perSearch <= 0 {
		perSearch = defaultResultsPerSearch
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		path:      ytdlpPath,
		perSearch: perSearch,
		sem:       semaphore.NewWeighted(maxConcurrentSearches),
		logger:    logger,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// searchEntry is the subset of yt-dlp's per-video JSON the pipeline uses.
type searchEntry struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Channel     string  `json:"channel"`
	ChannelID   string  `json:"channel_id"`
	Uploader    string  `json:"uploader"`
	Duration    float64 `json:"duration"`
	ViewCount   int64   `json:"view_count"`
	LikeCount   int64   `json:"like_count"`
	UploadDate  string  `json:"upload_date"` // YYYYMMDD
}

// Search runs one query and tags every hit with the search language. The
// subprocess is bounded by the shared semaphore and a 25s timeout.
func (s *Searcher) Search(ctx context.Context, query, lang string) ([]VideoCandidate, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire search slot: %w", err)
	}
	defer s.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	target := fmt.Sprintf("ytsearch%d:%s", s.perSearch, query)
	out, err := s.run(ctx, s.path,
		"--dump-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		"--ignore-errors",
		target,
	)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("yt-dlp search failed: %w", err)
	}

	candidates := s.parse(out, lang)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("search returned no candidates")
	}
	return candidates, nil
}

// parse decodes the newline-delimited JSON stream, skipping undecodable
// lines rather than failing the whole search.
func (s *Searcher) parse(out []byte, lang string) []VideoCandidate {
	var candidates []VideoCandidate
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var entry searchEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			s.logger.Debug("skipping undecodable search entry", "error", err)
			continue
		}
		if entry.ID == "" {
			continue
		}

		channel := entry.Channel
		if channel == "" {
			channel = entry.Uploader
		}
		// Full descriptions can run to tens of KB; scoring only reads the head.
		description := entry.Description
		if len(description) > 1000 {
			description = description[:1000]
		}
		c := VideoCandidate{
			VideoID:        entry.ID,
			Title:          entry.Title,
			Description:    description,
			ChannelID:      entry.ChannelID,
			ChannelName:    channel,
			DurationSec:    int(entry.Duration),
			ViewCount:      entry.ViewCount,
			LikeCount:      entry.LikeCount,
			SearchLanguage: lang,
		}
		if t, err := time.Parse("20060102", entry.UploadDate); err == nil {
			c.UploadDate = t
		}
		candidates = append(candidates, c)
	}
	return candidates
}
