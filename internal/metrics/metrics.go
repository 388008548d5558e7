// Package metrics exposes the Prometheus collectors shared by the enrichment
// pipeline and the recommendation server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Enrichment
	EnrichmentResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_enrichment_results_total",
			Help: "Total number of enrichment results appended to the checkpoint",
		},
		[]string{"status", "method"},
	)

	CheckpointFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_checkpoint_flushes_total",
			Help: "Total number of checkpoint flushes",
		},
		[]string{"result"},
	)

	CheckpointFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_checkpoint_flush_duration_seconds",
			Help:    "Duration of atomic checkpoint writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Source adapters
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_source_requests_total",
			Help: "Total number of metadata source lookups",
		},
		[]string{"source", "outcome"}, // "match", "no_match", "error", "rejected"
	)

	SourceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrec_source_request_duration_seconds",
			Help:    "Metadata source lookup duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookrec_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Serving
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"mode"}, // "reranked", "retrieval_only", "error", "not_ready"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_recommend_duration_seconds",
			Help:    "Recommendation request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)
)

// RecordSourceRequest records the outcome and latency of one adapter lookup.
func RecordSourceRequest(source, outcome string, duration time.Duration) {
	SourceRequests.WithLabelValues(source, outcome).Inc()
	SourceRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordFlush records a checkpoint flush.
func RecordFlush(duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	CheckpointFlushes.WithLabelValues(result).Inc()
	CheckpointFlushDuration.Observe(duration.Seconds())
}

// RecordRecommend records a served recommendation request.
func RecordRecommend(mode string, duration time.Duration) {
	RecommendRequests.WithLabelValues(mode).Inc()
	RecommendDuration.Observe(duration.Seconds())
}

// RecordAPIRequest counts a served HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
}
