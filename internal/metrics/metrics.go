// Package metrics holds the Prometheus collectors for the aggregation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pulso_search"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Requests answered from the result cache.",
		}, []string{"surface"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Requests that had to build a fresh result set.",
		}, []string{"surface"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Result sets degraded to synthetic or bundled records after upstream failure.",
		}, []string{"surface"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Upstream failures by source and kind.",
		}, []string{"source", "kind"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_seconds",
			Help:      "Upstream fetch latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
	}
	if reg != nil {
		reg.MustRegister(m.cacheHits, m.cacheMisses, m.fallbacks, m.upstreamErrors, m.upstreamLatency)
	}
	return m
}

func (m *Metrics) CacheHit(surface string) {
	if m != nil {
		m.cacheHits.WithLabelValues(surface).Inc()
	}
}

func (m *Metrics) CacheMiss(surface string) {
	if m != nil {
		m.cacheMisses.WithLabelValues(surface).Inc()
	}
}

func (m *Metrics) Fallback(surface string) {
	if m != nil {
		m.fallbacks.WithLabelValues(surface).Inc()
	}
}

func (m *Metrics) UpstreamError(source, kind string) {
	if m != nil {
		m.upstreamErrors.WithLabelValues(source, kind).Inc()
	}
}

// ObserveUpstream records how long a fetch against source took.
func (m *Metrics) ObserveUpstream(source string, d time.Duration) {
	if m != nil {
		m.upstreamLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}
