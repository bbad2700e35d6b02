package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	submissionsTotal    *prometheus.CounterVec
	xpAwarded           prometheus.Histogram
	leaderboardRequests *prometheus.CounterVec
	eventsPublished     *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_submissions_total",
			Help: "Total number of challenge submissions by outcome.",
		}, []string{"outcome"})

		xpAwarded = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lingo_xp_awarded",
			Help:    "Distribution of XP awarded per stored submission.",
			Buckets: []float64{0, 5, 10, 20, 30, 40, 60, 80},
		})

		leaderboardRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_leaderboard_requests_total",
			Help: "Leaderboard reads partitioned by cache result.",
		}, []string{"cache"})

		eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_events_published_total",
			Help: "Submission events handed to a broker.",
		}, []string{"broker", "status"})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lingo_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lingo_http_request_duration_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5, 10, 30},
		}, []string{"method", "route"})

		prometheus.MustRegister(
			submissionsTotal,
			xpAwarded,
			leaderboardRequests,
			eventsPublished,
			httpRequestsTotal,
			httpLatencySeconds,
		)
	})
}

// Submissions counts submission outcomes (stored, rejected, ai_failed, conflict, error).
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// XPAwarded observes XP granted per submission.
func XPAwarded() prometheus.Histogram {
	RegisterMetrics()
	return xpAwarded
}

// LeaderboardRequests counts leaderboard reads by cache result.
func LeaderboardRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return leaderboardRequests
}

// EventsPublished counts submission event deliveries.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublished
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}
