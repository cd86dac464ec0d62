package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Event log metrics
	EventsRecordedTotal prometheus.CounterVec
	EventsSkippedTotal  prometheus.CounterVec
	ViewBatchSize       prometheus.Histogram
	ViewBatchesTotal    prometheus.Counter

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Idempotency metrics
	IdempotencyReplaysTotal prometheus.Counter

	// Recommendation metrics
	RecommendationsServed prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			EventsRecordedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "user_events_recorded_total",
					Help: "User events appended to the event log",
				},
				[]string{"event_type"},
			),
			EventsSkippedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "user_events_skipped_total",
					Help: "Telemetry events dropped without a write",
				},
				[]string{"reason"},
			),
			ViewBatchSize: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "view_batch_size",
					Help:    "Entities per flushed view batch",
					Buckets: []float64{1, 2, 5, 10, 20, 50},
				},
			),
			ViewBatchesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "view_batches_total",
					Help: "View batches applied",
				},
			),
			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests denied by the rate limiter",
				},
				[]string{"surface"},
			),
			IdempotencyReplaysTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "idempotency_replays_total",
					Help: "Requests answered from the idempotency cache",
				},
			),
			RecommendationsServed: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "recommendations_served_total",
					Help: "Content items served by the recommendation resolver",
				},
				[]string{"domain"},
			),
			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Cache hits by cache name",
				},
				[]string{"cache"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Cache misses by cache name",
				},
				[]string{"cache"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it if needed
func Get() *Metrics {
	return Initialize()
}
