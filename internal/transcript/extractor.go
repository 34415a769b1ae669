package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vidsage/video-intelligence-go/internal/apperr"
	"github.com/vidsage/video-intelligence-go/internal/cache"
	"github.com/vidsage/video-intelligence-go/internal/config"
	"github.com/vidsage/video-intelligence-go/internal/health"
	"github.com/vidsage/video-intelligence-go/internal/metrics"
	"github.com/vidsage/video-intelligence-go/internal/resilience"
)

// fetcher is a single extraction method of the first two phases.
type fetcher interface {
	Method() Method
	Fetch(ctx context.Context, videoID string, languages []string) (*Result, error)
}

type ytdlpSubsFetcher struct{ c *YtDlpClient }

func (f ytdlpSubsFetcher) Method() Method { return MethodYtDlpSubs }
func (f ytdlpSubsFetcher) Fetch(ctx context.Context, videoID string, languages []string) (*Result, error) {
	return f.c.FetchSubs(ctx, videoID, languages)
}

type ytdlpAutoSubsFetcher struct{ c *YtDlpClient }

func (f ytdlpAutoSubsFetcher) Method() Method { return MethodYtDlpAutoSubs }
func (f ytdlpAutoSubsFetcher) Fetch(ctx context.Context, videoID string, languages []string) (*Result, error) {
	return f.c.FetchAutoSubs(ctx, videoID, languages)
}

// pacedMethods hit YouTube's own origin and share the token bucket.
var pacedMethods = map[Method]bool{
	MethodCaptionAPI: true,
	MethodInnertube:  true,
	MethodWatchPage:  true,
}

const cacheNamespace = "transcript"

// Extractor runs the three-phase extraction pipeline: cache lookup, the
// parallel first-win API phase, the sequential yt-dlp phase and the
// speech-to-text fallback.
type Extractor struct {
	cache    cache.Cache
	breakers *resilience.BreakerRegistry
	monitor  *health.Monitor
	pacer    *resilience.Pacer
	metrics  *metrics.Metrics
	logger   *slog.Logger
	backoff  resilience.BackoffConfig

	languages []string
	cacheTTL  time.Duration

	phase1 []fetcher
	phase2 []fetcher
	audio  *AudioFetcher
	phase3 []Transcriber

	phase1Timeout  time.Duration
	phase2Timeout  time.Duration
	audioTimeout   time.Duration
	whisperTimeout time.Duration
}

// ExtractorDeps carries the shared infrastructure the extractor plugs into.
type ExtractorDeps struct {
	Cache   cache.Cache
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewExtractor wires the full method rotation from configuration. Phase 3
// providers without credentials are left out of the rotation.
func NewExtractor(cfg config.TranscriptConfig, audioCfg config.AudioConfig, deps ExtractorDeps) *Extractor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := newHTTPClient(cfg.Phase1Timeout)
	instanceHealth := resilience.NewInstanceHealthRegistry(cfg.InstanceFailThreshold, cfg.InstanceRecheck)

	e := &Extractor{
		cache:          deps.Cache,
		breakers:       resilience.NewBreakerRegistry(cfg.FailureThreshold, cfg.RecoveryTimeout),
		monitor:        health.NewMonitor(logger),
		pacer:          resilience.NewPacer(cfg.RateLimitEnabled, cfg.RateLimitPerSec, cfg.RateLimitBurst),
		metrics:        deps.Metrics,
		logger:         logger,
		backoff:        resilience.DefaultBackoff,
		languages:      cfg.PreferredLanguages,
		cacheTTL:       cfg.CacheTTL,
		phase1Timeout:  cfg.Phase1Timeout,
		phase2Timeout:  cfg.Phase2Timeout,
		audioTimeout:   cfg.AudioTimeout,
		whisperTimeout: cfg.WhisperTimeout,
	}

	e.phase1 = []fetcher{
		NewCaptionAPIClient(httpClient, ""),
		NewInnertubeClient(httpClient, ""),
		NewWatchPageClient(httpClient, ""),
		NewInvidiousClient(httpClient, cfg.InvidiousInstances, instanceHealth, cfg.MaxInstances),
		NewPipedClient(httpClient, cfg.PipedInstances, instanceHealth, cfg.MaxInstances),
	}
	if paid := NewPaidAPIClient(httpClient, cfg.PaidBaseURL, cfg.PaidAPIKey); paid.Enabled() {
		e.phase1 = append(e.phase1, paid)
	}

	ytdlp := NewYtDlpClient(cfg.YtDlpPath, cfg.WorkDir)
	e.phase2 = []fetcher{ytdlpSubsFetcher{ytdlp}, ytdlpAutoSubsFetcher{ytdlp}}

	audioClient := newHTTPClient(cfg.AudioTimeout)
	e.audio = NewAudioFetcher(audioClient, cfg.YtDlpPath, cfg.FFmpegPath, cfg.WorkDir,
		cfg.InvidiousInstances, instanceHealth, audioCfg.MaxUploadBytes, audioCfg.ReencodeBitrate)

	sttClient := newHTTPClient(cfg.WhisperTimeout)
	if audioCfg.GroqAPIKey != "" {
		e.phase3 = append(e.phase3, NewGroqTranscriber(audioCfg.GroqAPIKey, audioCfg.GroqBaseURL))
	}
	if audioCfg.OpenAIAPIKey != "" {
		e.phase3 = append(e.phase3, NewOpenAITranscriber(audioCfg.OpenAIAPIKey))
	}
	if audioCfg.DeepgramAPIKey != "" {
		e.phase3 = append(e.phase3, NewDeepgramTranscriber(sttClient, audioCfg.DeepgramAPIKey, audioCfg.DeepgramBaseURL))
	}
	if audioCfg.AssemblyAPIKey != "" {
		e.phase3 = append(e.phase3, NewAssemblyTranscriber(sttClient, audioCfg.AssemblyAPIKey, audioCfg.AssemblyBaseURL,
			audioCfg.PollInterval, audioCfg.PollTimeout))
	}

	return e
}

// Extract resolves the video reference and runs the phase rotation, serving
// from cache when possible. Callers may override the configured caption
// language preference per request.
func (e *Extractor) Extract(ctx context.Context, videoRef string, languages ...string) (*Result, error) {
	videoID, err := ExtractVideoID(videoRef)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "invalid video reference", err)
	}

	if cached := e.fromCache(ctx, videoID); cached != nil {
		return cached, nil
	}

	langs := e.languages
	if len(languages) > 0 {
		langs = languages
	}

	start := time.Now()
	var attemptErrs []string

	finish := func(result *Result) *Result {
		result.ExtractionTimeMs = time.Since(start).Milliseconds()
		e.store(ctx, result)
		return result
	}

	if result := e.runPhase1(ctx, videoID, langs, &attemptErrs); result != nil {
		return finish(result), nil
	}
	if result := e.runPhase2(ctx, videoID, langs, &attemptErrs); result != nil {
		return finish(result), nil
	}
	if result := e.runPhase3(ctx, videoID, langs, &attemptErrs); result != nil {
		return finish(result), nil
	}

	e.logger.Warn("transcript extraction exhausted all methods",
		"video_id", videoID,
		"attempts", len(attemptErrs),
	)
	return nil, apperr.New(apperr.CodeTranscriptNotAvailable,
		fmt.Sprintf("Failed to extract transcript after %d attempts", len(attemptErrs))).
		WithContext("video_id", videoID).
		WithContext("attempt_errors", attemptErrs)
}

// InvalidateCache drops the cached transcript for one video.
func (e *Extractor) InvalidateCache(ctx context.Context, videoRef string) error {
	videoID, err := ExtractVideoID(videoRef)
	if err != nil {
		return apperr.Wrap(apperr.CodeInvalidInput, "invalid video reference", err)
	}
	if e.cache != nil {
		e.cache.Delete(ctx, cacheNamespace+":"+videoID)
	}
	return nil
}

// Stats bundles the method health counters and breaker states for the stats
// endpoint.
type Stats struct {
	Methods  map[string]health.MethodStats          `json:"methods"`
	Breakers map[string]resilience.BreakerSnapshot  `json:"breakers"`
	Priority []string                               `json:"priority"`
}

func (e *Extractor) Stats() Stats {
	return Stats{
		Methods:  e.monitor.Snapshot(),
		Breakers: e.breakers.Snapshot(),
		Priority: e.monitor.MethodPriority(),
	}
}

// ResetStats clears the health counters.
func (e *Extractor) ResetStats() { e.monitor.Reset() }

// ExportStats serializes the health counters for persistence across restarts.
func (e *Extractor) ExportStats() ([]byte, error) { return e.monitor.Export() }

// ImportStats restores previously exported health counters.
func (e *Extractor) ImportStats(data []byte) error { return e.monitor.Import(data) }

func (e *Extractor) fromCache(ctx context.Context, videoID string) *Result {
	if e.cache == nil {
		return nil
	}
	raw, ok := e.cache.Get(ctx, cacheNamespace+":"+videoID)
	if !ok {
		e.countCache("miss")
		return nil
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		e.countCache("miss")
		e.logger.Warn("dropping undecodable cached transcript", "video_id", videoID, "error", err)
		e.cache.Delete(ctx, cacheNamespace+":"+videoID)
		return nil
	}
	e.countCache("hit")
	result.Cached = true
	return &result
}

func (e *Extractor) store(ctx context.Context, result *Result) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		e.logger.Warn("marshal transcript for cache", "video_id", result.VideoID, "error", err)
		return
	}
	e.cache.Set(ctx, cacheNamespace+":"+result.VideoID, string(raw), e.cacheTTL)
}

func (e *Extractor) countCache(outcome string) {
	if e.metrics != nil {
		e.metrics.CacheHits.WithLabelValues(cacheNamespace, outcome).Inc()
	}
}

// runPhase1 launches all API-based methods in parallel and takes the first
// success, cancelling the rest.
func (e *Extractor) runPhase1(ctx context.Context, videoID string, langs []string, attemptErrs *[]string) *Result {
	ctx, cancel := context.WithTimeout(ctx, e.phase1Timeout)
	defer cancel()

	type outcome struct {
		result *Result
		method Method
		err    error
	}
	results := make(chan outcome, len(e.phase1))

	var wg sync.WaitGroup
	for _, f := range e.phase1 {
		wg.Add(1)
		go func(f fetcher) {
			defer wg.Done()
			result, err := e.attempt(ctx, f, videoID, langs)
			results <- outcome{result: result, method: f.Method(), err: err}
		}(f)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var winner *Result
	for out := range results {
		if out.err != nil {
			// Cancellation errors after a win are just the losers shutting
			// down; only real failures count as attempts.
			if winner == nil {
				*attemptErrs = append(*attemptErrs, fmt.Sprintf("%s: %v", out.method, out.err))
			}
			continue
		}
		if winner == nil {
			winner = out.result
			cancel() // first success wins, stop the stragglers
		}
	}
	return winner
}

// runPhase2 runs the yt-dlp methods sequentially, best historical performer
// first.
func (e *Extractor) runPhase2(ctx context.Context, videoID string, langs []string, attemptErrs *[]string) *Result {
	for _, f := range e.orderFetchers(e.phase2) {
		attemptCtx, cancel := context.WithTimeout(ctx, e.phase2Timeout)
		result, err := e.attempt(attemptCtx, f, videoID, langs)
		cancel()
		if err != nil {
			*attemptErrs = append(*attemptErrs, fmt.Sprintf("%s: %v", f.Method(), err))
			continue
		}
		return result
	}
	return nil
}

// runPhase3 downloads the audio once and feeds it to the transcription
// providers in priority order.
func (e *Extractor) runPhase3(ctx context.Context, videoID string, langs []string, attemptErrs *[]string) *Result {
	if len(e.phase3) == 0 {
		return nil
	}

	audioCtx, cancel := context.WithTimeout(ctx, e.audioTimeout)
	audioPath, cleanup, err := e.audio.Download(audioCtx, videoID)
	cancel()
	if err != nil {
		// Every provider would have needed the audio; count them all out.
		for _, t := range e.phase3 {
			*attemptErrs = append(*attemptErrs, fmt.Sprintf("%s: audio download failed: %v", t.Method(), err))
		}
		return nil
	}
	defer cleanup()

	language := ""
	if len(langs) > 0 {
		language = langs[0]
	}

	for _, t := range e.orderTranscribers(e.phase3) {
		method := string(t.Method())
		if !e.breakers.CanExecute(method) {
			*attemptErrs = append(*attemptErrs, fmt.Sprintf("%s: circuit open", method))
			e.observeBreaker(method)
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.whisperTimeout)
		start := time.Now()
		text, err := t.Transcribe(attemptCtx, audioPath, language)
		cancel()
		e.record(t.Method(), err, time.Since(start))

		if err != nil {
			*attemptErrs = append(*attemptErrs, fmt.Sprintf("%s: %v", method, err))
			continue
		}
		result := NewTextResult(videoID, text, language, t.Method())
		result.IsAuto = true // speech-to-text output is machine transcription
		return result
	}
	return nil
}

// attempt runs one fetcher behind its breaker with a single retry on
// transient failures.
func (e *Extractor) attempt(ctx context.Context, f fetcher, videoID string, langs []string) (*Result, error) {
	method := string(f.Method())
	if !e.breakers.CanExecute(method) {
		e.observeBreaker(method)
		return nil, fmt.Errorf("circuit open")
	}

	var lastErr error
	for try := 0; try < 2; try++ {
		if try > 0 {
			if err := e.backoff.Sleep(ctx, 0); err != nil {
				break
			}
		}
		if pacedMethods[f.Method()] {
			if err := e.pacer.Acquire(ctx); err != nil {
				lastErr = fmt.Errorf("rate limiter: %w", err)
				break
			}
		}

		start := time.Now()
		result, err := f.Fetch(ctx, videoID, langs)
		e.record(f.Method(), err, time.Since(start))
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !health.IsTransient(health.ClassifyError(err.Error())) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// record updates the health monitor, metrics and breaker for one attempt.
func (e *Extractor) record(method Method, err error, elapsed time.Duration) {
	name := string(method)
	if err == nil {
		e.monitor.RecordAttempt(name, true, elapsed, "")
		e.breakers.RecordSuccess(name)
		if e.metrics != nil {
			e.metrics.ExtractionAttempts.WithLabelValues(name, "success").Inc()
			e.metrics.ExtractionDuration.WithLabelValues(name).Observe(elapsed.Seconds())
		}
	} else {
		e.monitor.RecordAttempt(name, false, elapsed, err.Error())
		e.breakers.RecordFailure(name)
		if e.metrics != nil {
			e.metrics.ExtractionAttempts.WithLabelValues(name, "failure").Inc()
		}
	}
	e.observeBreaker(name)
}

func (e *Extractor) observeBreaker(method string) {
	if e.metrics == nil {
		return
	}
	e.metrics.BreakerState.WithLabelValues(method).Set(float64(e.breakers.State(method)))
}

func (e *Extractor) orderFetchers(fetchers []fetcher) []fetcher {
	names := make([]string, len(fetchers))
	byName := make(map[string]fetcher, len(fetchers))
	for i, f := range fetchers {
		names[i] = string(f.Method())
		byName[names[i]] = f
	}
	ordered := make([]fetcher, 0, len(fetchers))
	for _, name := range e.monitor.SortByPriority(names) {
		ordered = append(ordered, byName[name])
	}
	return ordered
}

func (e *Extractor) orderTranscribers(transcribers []Transcriber) []Transcriber {
	names := make([]string, len(transcribers))
	byName := make(map[string]Transcriber, len(transcribers))
	for i, t := range transcribers {
		names[i] = string(t.Method())
		byName[names[i]] = t
	}
	ordered := make([]Transcriber, 0, len(transcribers))
	for _, name := range e.monitor.SortByPriority(names) {
		ordered = append(ordered, byName[name])
	}
	return ordered
}
