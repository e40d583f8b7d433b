// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsFetchedTotal       *prometheus.CounterVec
	eventsUniqueTotal        *prometheus.CounterVec
	connectorErrorsTotal     *prometheus.CounterVec
	httpRequestsTotal        *prometheus.CounterVec
	httpRequestSeconds       *prometheus.HistogramVec
	circuitBreakerStateGauge *prometheus.GaugeVec
	ingestRunSeconds         prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		eventsFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_events_fetched_total",
				Help: "Total raw events extracted, labeled by source.",
			},
			[]string{"source"},
		)
		eventsUniqueTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_events_unique_total",
				Help: "Total events surviving deduplication, labeled by source.",
			},
			[]string{"source"},
		)
		connectorErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_connector_errors_total",
				Help: "Total connector-level failures, labeled by source.",
			},
			[]string{"source"},
		)
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_http_requests_total",
				Help: "Total upstream HTTP requests, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)
		httpRequestSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_http_request_duration_seconds",
				Help:    "Upstream HTTP request duration.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)
		circuitBreakerStateGauge = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ingest_circuit_breaker_state",
				Help: "Circuit breaker state per source (0=closed, 1=open).",
			},
			[]string{"source"},
		)
		ingestRunSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_run_duration_seconds",
				Help:    "Duration of a full orchestration run.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		)
	})
}

// ObserveEventsFetched records the raw event count for a source.
func ObserveEventsFetched(source string, n int) {
	if eventsFetchedTotal != nil {
		eventsFetchedTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveEventsUnique records the post-dedup event count for a source.
func ObserveEventsUnique(source string, n int) {
	if eventsUniqueTotal != nil {
		eventsUniqueTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveConnectorError counts a connector-level failure.
func ObserveConnectorError(source string) {
	if connectorErrorsTotal != nil {
		connectorErrorsTotal.WithLabelValues(source).Inc()
	}
}

// ObserveHTTPRequest counts one upstream request and its duration.
func ObserveHTTPRequest(source, outcome string, elapsed time.Duration) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(source, outcome).Inc()
	}
	if httpRequestSeconds != nil {
		httpRequestSeconds.WithLabelValues(source).Observe(elapsed.Seconds())
	}
}

// SetBreakerState records the breaker state for a source, 0 closed and
// 1 open.
func SetBreakerState(source string, state float64) {
	if circuitBreakerStateGauge != nil {
		circuitBreakerStateGauge.WithLabelValues(source).Set(state)
	}
}

// ObserveIngestRun records the duration of a full orchestration run.
func ObserveIngestRun(elapsed time.Duration) {
	if ingestRunSeconds != nil {
		ingestRunSeconds.Observe(elapsed.Seconds())
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
