package discovery

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
	"github.com/vidsage/video-intelligence-go/internal/metrics"
)

const (
	maxLanguages      = 6
	defaultMaxResults = 30
	capMaxResults     = 50
	defaultMinQuality = 30.0
	// minLanguageQuota floors the per-language diversity cap.
	minLanguageQuota = 5
	// variantsPerLanguage is how many reformulated variants each language
	// searches.
	variantsPerLanguage = 2
)

var defaultLanguages = []string{"fr", "en"}

// Request are the discovery inputs after handler-level decoding.
type Request struct {
	Query        string   `json:"query"`
	Languages    []string `json:"languages"`
	MaxResults   int      `json:"max_results"`
	MinQuality   float64  `json:"min_quality"`
	DurationType string   `json:"duration_type"`
}

// Response is the discovery result envelope.
type Response struct {
	Candidates         []VideoCandidate `json:"candidates"`
	ReformulatedQueries []string        `json:"reformulated_queries"`
	TotalSearched      int              `json:"total_searched"`
	LanguagesSearched  []string         `json:"languages_searched"`
	VideosPerLanguage  map[string]int   `json:"videos_per_language"`
	SearchDurationMs   int64            `json:"search_duration_ms"`
}

// searchRunner abstracts the yt-dlp searcher for tests.
type searchRunner interface {
	Search(ctx context.Context, query, lang string) ([]VideoCandidate, error)
}

// queryExpander abstracts the reformulator for tests.
type queryExpander interface {
	Reformulate(ctx context.Context, query, lang string) []string
	Translate(ctx context.Context, text, from, to string) string
}

// Orchestrator composes reformulation, search fan-out, scoring, diversity
// and the trusted guarantee into one discovery call.
type Orchestrator struct {
	reformulator queryExpander
	searcher     searchRunner
	scorer       *Scorer
	trusted      *TrustedInjector
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func NewOrchestrator(reformulator *Reformulator, searcher *Searcher, scorer *Scorer, trusted *TrustedInjector, m *metrics.Metrics, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		reformulator: reformulator,
		searcher:     searcher,
		scorer:       scorer,
		trusted:      trusted,
		metrics:      m,
		logger:       logger,
	}
}

type searchTask struct {
	query string
	lang  string
}

// Discover runs the full pipeline for one request.
func (o *Orchestrator) Discover(ctx context.Context, req Request) (*Response, error) {
	if req.Query == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "query is required")
	}
	req = normalize(req)
	start := time.Now()

	primary := req.Languages[0]
	variants := o.reformulator.Reformulate(ctx, req.Query, primary)

	tasks := o.buildTasks(ctx, req, variants)
	pool, totalSearched := o.runSearches(ctx, tasks)

	candidates := dedupCandidates(pool)
	for i := range candidates {
		candidates[i].DetectedLanguage = detectCandidateLanguage(&candidates[i])
	}

	o.scorer.ScoreBatch(ctx, candidates, req.Query, req.DurationType)

	kept := candidates[:0]
	for _, c := range candidates {
		if c.FinalScore >= req.MinQuality {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].FinalScore > kept[j].FinalScore })

	selected := diversify(kept, req.MaxResults, len(req.Languages))
	selected = o.trusted.Ensure(ctx, selected, req.Query)
	if len(selected) > req.MaxResults {
		selected = selected[:req.MaxResults]
	}

	perLanguage := make(map[string]int)
	for i := range selected {
		perLanguage[selected[i].bucketLanguage()]++
	}

	elapsed := time.Since(start)
	if o.metrics != nil {
		o.metrics.DiscoveryDuration.Observe(elapsed.Seconds())
	}
	o.logger.Info("discovery completed",
		"query", req.Query,
		"languages", req.Languages,
		"searched", totalSearched,
		"returned", len(selected),
		"duration_ms", elapsed.Milliseconds(),
	)

	return &Response{
		Candidates:          selected,
		ReformulatedQueries: variants,
		TotalSearched:       totalSearched,
		LanguagesSearched:   req.Languages,
		VideosPerLanguage:   perLanguage,
		SearchDurationMs:    elapsed.Milliseconds(),
	}, nil
}

func normalize(req Request) Request {
	if len(req.Languages) == 0 {
		req.Languages = append([]string(nil), defaultLanguages...)
	}
	if len(req.Languages) > maxLanguages {
		req.Languages = req.Languages[:maxLanguages]
	}
	if req.MaxResults <= 0 {
		req.MaxResults = defaultMaxResults
	}
	if req.MaxResults > capMaxResults {
		req.MaxResults = capMaxResults
	}
	if req.MinQuality <= 0 {
		req.MinQuality = defaultMinQuality
	}
	if req.DurationType == "" {
		req.DurationType = "default"
	}
	return req
}

// buildTasks assigns two variants per language, plus a translated original
// query for each non-primary language.
func (o *Orchestrator) buildTasks(ctx context.Context, req Request, variants []string) []searchTask {
	primary := req.Languages[0]

	take := variantsPerLanguage
	if take > len(variants) {
		take = len(variants)
	}

	var tasks []searchTask
	for _, lang := range req.Languages {
		for _, variant := range variants[:take] {
			tasks = append(tasks, searchTask{query: variant, lang: lang})
		}
		if lang != primary {
			translated := o.reformulator.Translate(ctx, req.Query, primary, lang)
			tasks = append(tasks, searchTask{query: translated, lang: lang})
		}
	}
	return tasks
}

// runSearches executes every task; individual search failures are logged
// and skipped, never failing the request. All tasks complete before the
// pool is returned.
func (o *Orchestrator) runSearches(ctx context.Context, tasks []searchTask) ([]VideoCandidate, int) {
	var mu sync.Mutex
	var pool []VideoCandidate

	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		g.Go(func() error {
			found, err := o.searcher.Search(gctx, task.query, task.lang)
			if err != nil {
				o.logger.Warn("search task failed", "query", task.query, "lang", task.lang, "error", err)
				return nil
			}
			mu.Lock()
			pool = append(pool, found...)
			mu.Unlock()
			return nil
		})
		if o.metrics != nil {
			o.metrics.DiscoverySearches.Inc()
		}
	}
	_ = g.Wait() // tasks swallow their own errors

	return pool, len(pool)
}

func dedupCandidates(pool []VideoCandidate) []VideoCandidate {
	seen := make(map[string]struct{}, len(pool))
	out := make([]VideoCandidate, 0, len(pool))
	for _, c := range pool {
		if _, dup := seen[c.VideoID]; dup {
			continue
		}
		seen[c.VideoID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// diversify walks the score-sorted list enforcing the channel and language
// caps, then relaxes the language cap to fill remaining slots.
func diversify(sorted []VideoCandidate, maxResults, languageCount int) []VideoCandidate {
	if languageCount < 1 {
		languageCount = 1
	}
	langQuota := maxResults / languageCount
	if langQuota < minLanguageQuota {
		langQuota = minLanguageQuota
	}

	const channelCap = 2

	channelCount := make(map[string]int)
	langCount := make(map[string]int)
	taken := make(map[string]struct{})

	var selected []VideoCandidate
	for i := range sorted {
		if len(selected) >= maxResults {
			break
		}
		c := sorted[i]
		if channelCount[c.ChannelID] >= channelCap || langCount[c.bucketLanguage()] >= langQuota {
			continue
		}
		channelCount[c.ChannelID]++
		langCount[c.bucketLanguage()]++
		taken[c.VideoID] = struct{}{}
		selected = append(selected, c)
	}

	// Relaxed pass: language cap off, channel cap still on.
	for i := range sorted {
		if len(selected) >= maxResults-1 {
			break
		}
		c := sorted[i]
		if _, dup := taken[c.VideoID]; dup {
			continue
		}
		if channelCount[c.ChannelID] >= channelCap {
			continue
		}
		channelCount[c.ChannelID]++
		taken[c.VideoID] = struct{}{}
		selected = append(selected, c)
	}

	sort.SliceStable(selected, func(i, j int) bool { return selected[i].FinalScore > selected[j].FinalScore })
	return selected
}
