// Package metrics declares the Prometheus collectors exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shelfwise"

// HTTP
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by a rate limiter.",
		},
		[]string{"limiter"},
	)
)

// Shelves
var (
	ShelfMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shelf_mutations_total",
			Help:      "Shelf operations by kind and whether they changed state.",
		},
		[]string{"operation", "changed"},
	)

	ShelfSaveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shelf_save_failures_total",
			Help:      "Shelf state writes that failed after an in-memory mutation.",
		},
	)

	ShelfLoadFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shelf_load_fallbacks_total",
			Help:      "Shelf loads that fell back to a fresh state.",
		},
		[]string{"reason"},
	)

	UsersSettled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_settled_total",
			Help:      "New accounts marked as settled.",
		},
	)
)

// Recommendations
var RecommendationsServed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recommendations_served_total",
		Help:      "Recommendation responses by fallback path and genre filtering.",
	},
	[]string{"path", "genre_filtered"},
)

// Activity pipeline
var (
	ActivityPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_published_total",
			Help:      "Activity events published.",
		},
	)

	ActivityPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_publish_failures_total",
			Help:      "Activity events dropped at publish time.",
		},
		[]string{"reason"},
	)

	ActivityConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_consumed_total",
			Help:      "Activity events handled by the consumer, by result.",
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		},
		[]string{"name"},
	)
)

// RecordRequest records one HTTP request.
func RecordRequest(method, route string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordShelfMutation records a shelf operation.
func RecordShelfMutation(operation string, changed bool) {
	ShelfMutations.WithLabelValues(operation, strconv.FormatBool(changed)).Inc()
}

// RecordRecommendation records which path produced a recommendation list.
func RecordRecommendation(path string, genreFiltered bool) {
	RecommendationsServed.WithLabelValues(path, strconv.FormatBool(genreFiltered)).Inc()
}
