package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	eventsProcessedTotal  *prometheus.CounterVec
	submissionOutcomes    *prometheus.CounterVec
	reviewDecisionsTotal  *prometheus.CounterVec
	notifyRequestFailures *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for HTTP API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by HTTP endpoints.",
		}, []string{"method", "route", "status"})

		eventsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_events_processed_total",
			Help: "Total number of inbound bot events processed, by kind and result.",
		}, []string{"kind", "result"})

		submissionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_outcomes_total",
			Help: "Total number of intake decisions, by outcome branch.",
		}, []string{"outcome"})

		reviewDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_decisions_total",
			Help: "Total number of review decisions, by resulting status.",
		}, []string{"status"})

		notifyRequestFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_request_failures_total",
			Help: "Total number of notification requests that could not be published.",
		}, []string{"kind"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			eventsProcessedTotal,
			submissionOutcomes,
			reviewDecisionsTotal,
			notifyRequestFailures,
		)
	})
}

// HTTPRequests exposes the counter for HTTP requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for HTTP requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for HTTP error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// EventsProcessed exposes the counter for inbound bot events.
func EventsProcessed() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsProcessedTotal
}

// SubmissionOutcomes exposes the counter for intake outcomes.
func SubmissionOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionOutcomes
}

// ReviewDecisions exposes the counter for review decisions.
func ReviewDecisions() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewDecisionsTotal
}

// NotifyFailures exposes the counter for failed notification publishes.
func NotifyFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return notifyRequestFailures
}
