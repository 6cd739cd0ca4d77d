// Package metrics exposes Prometheus instrumentation for the movie service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "movie_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Ledger mutations: kind is favorite_add, favorite_remove, rating, comment
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_mutations_total",
			Help: "Total number of ledger mutations by outcome",
		},
		[]string{"kind", "outcome"},
	)

	// Aggregate maintenance: trigger is mutation, manual, reconcile
	AggregateRecomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_aggregate_recompute_total",
			Help: "Total number of aggregate recomputations",
		},
		[]string{"trigger", "outcome"},
	)

	AggregateRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "movie_aggregate_recompute_duration_seconds",
			Help:    "Duration of a single movie aggregate recomputation",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Events
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_events_published_total",
			Help: "Total number of domain events published",
		},
		[]string{"type", "outcome"},
	)

	// Auth
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_login_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "movie_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordHTTPRequest records a finished HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordMutation records a ledger mutation.
func RecordMutation(kind string, err error) {
	MutationsTotal.WithLabelValues(kind, outcome(err)).Inc()
}

// RecordRecompute records one aggregate recomputation.
func RecordRecompute(trigger string, duration time.Duration, err error) {
	AggregateRecomputeTotal.WithLabelValues(trigger, outcome(err)).Inc()
	if err == nil {
		AggregateRecomputeDuration.Observe(duration.Seconds())
	}
}

// RecordEventPublished records a domain event publish attempt.
func RecordEventPublished(eventType string, err error) {
	EventsPublishedTotal.WithLabelValues(eventType, outcome(err)).Inc()
}

// RecordLogin records a login attempt result: success, invalid, error.
func RecordLogin(result string) {
	LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordRateLimited records a rejected request.
func RecordRateLimited(route string) {
	RateLimitedTotal.WithLabelValues(route).Inc()
}
