// Package health tracks rolling per-method extraction statistics, emits
// degradation alerts and derives an auto-optimized method ordering.
package health

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Error classes recorded per method. Classification is by substring match on
// the error message, mirroring the upstream failure modes.
const (
	ErrClassTimeout      = "timeout"
	ErrClassRateLimit    = "rate_limit"
	ErrClassBlocked      = "blocked"
	ErrClassNotFound     = "not_found"
	ErrClassNoTranscript = "no_transcript"
	ErrClassNetwork      = "network"
	ErrClassOther        = "other"
)

// ClassifyError maps an error message to one of the error classes.
func ClassifyError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return ErrClassTimeout
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate"):
		return ErrClassRateLimit
	case strings.Contains(lower, "403") || strings.Contains(lower, "blocked") || strings.Contains(lower, "forbidden"):
		return ErrClassBlocked
	case strings.Contains(lower, "404") || strings.Contains(lower, "not found") || strings.Contains(lower, "unavailable"):
		return ErrClassNotFound
	case strings.Contains(lower, "no transcript") || strings.Contains(lower, "no caption") || strings.Contains(lower, "no subtitle"):
		return ErrClassNoTranscript
	case strings.Contains(lower, "connection") || strings.Contains(lower, "network") || strings.Contains(lower, "dns") || strings.Contains(lower, "refused"):
		return ErrClassNetwork
	default:
		return ErrClassOther
	}
}

// IsTransient reports whether an error class qualifies for the single
// intra-method retry. not_found and no_transcript never retry.
func IsTransient(class string) bool {
	return class == ErrClassNetwork || class == ErrClassTimeout
}

// MethodStats holds the rolling counters for one extraction method.
type MethodStats struct {
	Success       int64            `json:"success"`
	Failure       int64            `json:"failure"`
	TotalTimeMs   int64            `json:"total_time_ms"`
	LastSuccessAt time.Time        `json:"last_success_at"`
	LastFailureAt time.Time        `json:"last_failure_at"`
	ErrorTypes    map[string]int64 `json:"error_types"`
}

func (s *MethodStats) attempts() int64 { return s.Success + s.Failure }

func (s *MethodStats) successRate() float64 {
	total := s.attempts()
	if total == 0 {
		return 0
	}
	return float64(s.Success) / float64(total)
}

func (s *MethodStats) avgTimeMs() float64 {
	total := s.attempts()
	if total == 0 {
		return 0
	}
	return float64(s.TotalTimeMs) / float64(total)
}

const (
	alertMinAttempts     = 10
	alertSuccessFloor    = 0.5
	alertSuppression     = time.Hour
	priorityCacheWindow  = 5 * time.Minute
	recentFailureWindow  = 5 * time.Minute
	recentFailurePenalty = 0.8
)

// Monitor aggregates MethodStats and computes the method priority order.
type Monitor struct {
	mu           sync.Mutex
	stats        map[string]*MethodStats
	lastAlert    map[string]time.Time
	cachedOrder  []string
	cacheExpires time.Time
	logger       *slog.Logger
	now          func() time.Time
}

// NewMonitor creates an empty monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		stats:     make(map[string]*MethodStats),
		lastAlert: make(map[string]time.Time),
		logger:    logger,
		now:       time.Now,
	}
}

func (m *Monitor) get(method string) *MethodStats {
	s, ok := m.stats[method]
	if !ok {
		s = &MethodStats{ErrorTypes: make(map[string]int64)}
		m.stats[method] = s
	}
	return s
}

// RecordAttempt updates the counters for one extraction attempt. errMsg is
// classified when success is false.
func (m *Monitor) RecordAttempt(method string, success bool, duration time.Duration, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.get(method)
	now := m.now()
	s.TotalTimeMs += duration.Milliseconds()

	if success {
		s.Success++
		s.LastSuccessAt = now
	} else {
		s.Failure++
		s.LastFailureAt = now
		class := ClassifyError(errMsg)
		s.ErrorTypes[class]++
	}

	m.maybeAlertLocked(method, s, now)
}

func (m *Monitor) maybeAlertLocked(method string, s *MethodStats, now time.Time) {
	if s.attempts() < alertMinAttempts || s.successRate() >= alertSuccessFloor {
		return
	}
	if last, ok := m.lastAlert[method]; ok && now.Sub(last) < alertSuppression {
		return
	}
	m.lastAlert[method] = now
	m.logger.Warn("extraction method degraded",
		"method", method,
		"success_rate", s.successRate(),
		"attempts", s.attempts(),
		"avg_time_ms", s.avgTimeMs(),
	)
}

// MethodPriority returns the known methods ordered best-first by
// 0.7*success_rate + 0.3*time_score, where time_score decays linearly to
// zero at 10s average. Methods with a failure in the last five minutes take
// a 20% penalty. The ordering is cached for five minutes.
func (m *Monitor) MethodPriority() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.cachedOrder != nil && now.Before(m.cacheExpires) {
		return append([]string(nil), m.cachedOrder...)
	}

	type scored struct {
		method string
		score  float64
	}
	list := make([]scored, 0, len(m.stats))
	for method, s := range m.stats {
		timeScore := 1 - s.avgTimeMs()/10000
		if timeScore < 0 {
			timeScore = 0
		}
		score := 0.7*s.successRate() + 0.3*timeScore
		if !s.LastFailureAt.IsZero() && now.Sub(s.LastFailureAt) < recentFailureWindow {
			score *= recentFailurePenalty
		}
		list = append(list, scored{method: method, score: score})
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })

	order := make([]string, len(list))
	for i, s := range list {
		order[i] = s.method
	}
	m.cachedOrder = order
	m.cacheExpires = now.Add(priorityCacheWindow)
	return append([]string(nil), order...)
}

// SortByPriority orders the given subset of methods by the monitored
// priority, leaving unknown methods in their original relative order at the
// end. Used by the sequential phases of the extractor.
func (m *Monitor) SortByPriority(methods []string) []string {
	rank := make(map[string]int)
	for i, method := range m.MethodPriority() {
		rank[method] = i
	}

	out := append([]string(nil), methods...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iKnown := rank[out[i]]
		rj, jKnown := rank[out[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		default:
			return false
		}
	})
	return out
}

// Export serializes all method stats as JSON.
func (m *Monitor) Export() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return json.Marshal(m.stats)
}

// Import replaces the in-memory stats with a previously exported snapshot.
func (m *Monitor) Import(data []byte) error {
	var stats map[string]*MethodStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range stats {
		if s.ErrorTypes == nil {
			s.ErrorTypes = make(map[string]int64)
		}
	}
	m.stats = stats
	m.cachedOrder = nil
	return nil
}

// Reset clears all counters and alert suppression state.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = make(map[string]*MethodStats)
	m.lastAlert = make(map[string]time.Time)
	m.cachedOrder = nil
}

// Snapshot returns a deep copy of the stats for read-only use.
func (m *Monitor) Snapshot() map[string]MethodStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]MethodStats, len(m.stats))
	for method, s := range m.stats {
		copied := *s
		copied.ErrorTypes = make(map[string]int64, len(s.ErrorTypes))
		for class, n := range s.ErrorTypes {
			copied.ErrorTypes[class] = n
		}
		out[method] = copied
	}
	return out
}
