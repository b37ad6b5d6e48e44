package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rescuedex",
			Name:      "search_requests_total",
			Help:      "Total smart search requests by executed method and status",
		},
		[]string{"method", "status"},
	)

	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rescuedex",
			Name:      "search_stage_duration_seconds",
			Help:      "Duration of each search pipeline stage in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	SearchResultsCount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rescuedex",
			Name:      "search_results_count",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"method"},
	)

	ClassifierFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rescuedex",
			Name:      "classifier_fallback_total",
			Help:      "Classifications that failed closed to the hybrid fallback",
		},
		[]string{"cause"}, // "completion" / "parse" / "schema"
	)

	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rescuedex",
			Name:      "completion_requests_total",
			Help:      "Delegate classifier completion requests",
		},
		[]string{"model", "status"},
	)

	CompletionRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rescuedex",
			Name:      "completion_request_duration_seconds",
			Help:      "Delegate classifier completion latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)

	VocabularyLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rescuedex",
			Name:      "vocabulary_loads_total",
			Help:      "Vocabulary cache loads",
		},
		[]string{"status"},
	)
)

var searchOnce sync.Once

// RegisterSearchMetrics registers the search pipeline metrics with the default registry.
// Safe to call more than once.
func RegisterSearchMetrics() {
	searchOnce.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SearchStageDuration,
			SearchResultsCount,
			ClassifierFallbackTotal,
			VocabularyLoadsTotal,
			CompletionRequestsTotal,
			CompletionRequestDuration,
		)
	})
}
