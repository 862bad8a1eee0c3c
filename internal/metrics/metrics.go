// Package metrics holds the Prometheus collectors shared by the client,
// store and web frontend. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledgerview"

// Metrics groups the collectors on a dedicated registry.
type Metrics struct {
	Registry    *prometheus.Registry
	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	storeDedup  *prometheus.CounterVec
	uploads     *prometheus.CounterVec
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Statement API calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		apiDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Time spent waiting on the statement API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		storeDedup: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_dedup_total",
			Help:      "Fetches served by an in-flight or cached request instead of a new one.",
		}, []string{"resource"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveAPI records one statement API call.
func (m *Metrics) ObserveAPI(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(op, outcome).Inc()
	m.apiDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Dedup records a fetch that did not hit the network.
func (m *Metrics) Dedup(resource string) {
	if m == nil {
		return
	}
	m.storeDedup.WithLabelValues(resource).Inc()
}

// Upload records an upload attempt.
func (m *Metrics) Upload(outcome string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
