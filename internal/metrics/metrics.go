// Package metrics exposes the prometheus instrumentation for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors registered on one registry so tests can use
// isolated instances.
type Metrics struct {
	Registry *prometheus.Registry

	ExtractionAttempts *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	CacheHits          *prometheus.CounterVec
	BreakerState       *prometheus.GaugeVec
	DiscoveryDuration  prometheus.Histogram
	DiscoverySearches  prometheus.Counter
	ChatRequests       *prometheus.CounterVec
	WebSearchCalls     prometheus.Counter
}

// New creates a registry with all pipeline collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		ExtractionAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcript_extraction_attempts_total",
			Help: "Extraction attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		ExtractionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transcript_extraction_duration_seconds",
			Help:    "Wall-clock duration of successful extractions by method.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"method"}),
		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by namespace and result.",
		}, []string{"namespace", "result"}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit state per method (0 closed, 1 open, 2 half-open).",
		}, []string{"method"}),
		DiscoveryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "discovery_duration_seconds",
			Help:    "End-to-end discovery request duration.",
			Buckets: []float64{1, 5, 10, 25, 60},
		}),
		DiscoverySearches: factory.NewCounter(prometheus.CounterOpts{
			Name: "discovery_search_tasks_total",
			Help: "Search fan-out tasks executed.",
		}),
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Chat requests by outcome.",
		}, []string{"outcome"}),
		WebSearchCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "web_search_calls_total",
			Help: "Fact-checking search provider calls.",
		}),
	}
}
