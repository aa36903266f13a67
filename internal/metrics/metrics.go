// Package metrics defines Prometheus metrics for the RD service bridge.
//
// All metrics are registered with Registry, which the watch command serves
// over HTTP. Naming follows Prometheus conventions:
//   - rdbridge_ prefix for all metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every bridge metric
var Registry = prometheus.NewRegistry()

var (
	// RequestsTotal counts transport attempts by verb and outcome
	// ("ok", "http_error", or a transport error class).
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdbridge_requests_total",
			Help: "Total RD service requests by verb and outcome.",
		},
		[]string{"verb", "outcome"},
	)

	// RequestDurationSeconds is a histogram of attempt duration by verb.
	RequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rdbridge_request_duration_seconds",
			Help:    "Duration of RD service requests in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"verb"},
	)

	// RetriesTotal counts retries scheduled by the retry controller, by error class.
	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdbridge_retries_total",
			Help: "Total retries scheduled after a failed attempt.",
		},
		[]string{"class"},
	)

	// CaptureFallbacksTotal counts captures that moved on to the fallback verb.
	CaptureFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rdbridge_capture_fallbacks_total",
			Help: "Total captures that fell back to the generic verb.",
		},
	)

	// MockResponsesTotal counts synthetic responses served, by operation.
	MockResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rdbridge_mock_responses_total",
			Help: "Total mock responses served in place of the RD service.",
		},
		[]string{"operation"},
	)

	// HealthStatus is 1 when the last health check of an endpoint passed.
	HealthStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rdbridge_health_status",
			Help: "Result of the last health check (1 healthy, 0 unhealthy).",
		},
		[]string{"endpoint"},
	)
)

func init() {
	Registry.MustRegister(
		RequestsTotal,
		RequestDurationSeconds,
		RetriesTotal,
		CaptureFallbacksTotal,
		MockResponsesTotal,
		HealthStatus,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveRequest records one transport attempt.
func ObserveRequest(verb, outcome string, duration time.Duration) {
	RequestsTotal.WithLabelValues(verb, outcome).Inc()
	RequestDurationSeconds.WithLabelValues(verb).Observe(duration.Seconds())
}

// SetHealth records the result of a health check.
func SetHealth(endpoint string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	HealthStatus.WithLabelValues(endpoint).Set(value)
}
