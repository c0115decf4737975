// Package telemetry exposes Prometheus metrics for report runs. A nil
// *Metrics is valid and records nothing.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ga_report"

// Metrics groups every collector the pipeline updates.
type Metrics struct {
	apiRequests  *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	apiRetries   *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	sections     *prometheus.CounterVec
	runs         *prometheus.CounterVec
	healthScores *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Analytics API calls by method and outcome.",
		}, []string{"method", "outcome"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Analytics API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		apiRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_retries_total",
			Help:      "Retried analytics API calls by triggering status (0 for network errors).",
		}, []string{"status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		sections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_total",
			Help:      "Section extractions by section and outcome.",
		}, []string{"section", "outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Report runs by outcome.",
		}, []string{"outcome"}),
		healthScores: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_score",
			Help:      "Latest health score per property.",
		}, []string{"property", "score"}),
	}
	if reg != nil {
		reg.MustRegister(m.apiRequests, m.apiLatency, m.apiRetries, m.cacheLookups,
			m.sections, m.runs, m.healthScores)
	}
	return m
}

// ObserveAPI records one API call.
func (m *Metrics) ObserveAPI(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, outcome).Inc()
	m.apiLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Retry records a retried call.
func (m *Metrics) Retry(status int) {
	if m == nil {
		return
	}
	m.apiRetries.WithLabelValues(statusLabel(status)).Inc()
}

// Cache records a cache hit or miss.
func (m *Metrics) Cache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Section records an extraction outcome ("ok" or "unavailable").
func (m *Metrics) Section(name, outcome string) {
	if m == nil {
		return
	}
	m.sections.WithLabelValues(name, outcome).Inc()
}

// Run records a finished run ("ok", "degraded" or "fatal").
func (m *Metrics) Run(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

// Score sets the latest value of a health score.
func (m *Metrics) Score(property, name string, value int) {
	if m == nil {
		return
	}
	m.healthScores.WithLabelValues(property, name).Set(float64(value))
}

func statusLabel(status int) string {
	if status == 0 {
		return "network"
	}
	return strconv.Itoa(status)
}
