// Package metrics exposes Prometheus collectors for pool occupancy.
// A Pool works fully without ever touching this package; register
// Pool.Metrics().Collectors() with a registry only if observability is
// wanted.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// PoolMetrics tracks connection-pool occupancy and lifecycle counts,
// labeled by server address.
type PoolMetrics struct {
	live               *prometheus.GaugeVec
	available          *prometheus.GaugeVec
	acquiredTotal      *prometheus.CounterVec
	disposedTotal      *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
}

// NewPoolMetrics constructs an unregistered set of collectors.
func NewPoolMetrics() *PoolMetrics {
	return &PoolMetrics{
		live: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "boltstream",
			Subsystem: "pool",
			Name:      "live_connections",
			Help:      "Number of live connections currently held by the pool, per address.",
		}, []string{"address"}),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "boltstream",
			Subsystem: "pool",
			Name:      "available_connections",
			Help:      "Number of validated, idle connections queued for reuse, per address.",
		}, []string{"address"}),
		acquiredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boltstream",
			Subsystem: "pool",
			Name:      "acquired_total",
			Help:      "Total number of successful Acquire calls, per address.",
		}, []string{"address"}),
		disposedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boltstream",
			Subsystem: "pool",
			Name:      "disposed_total",
			Help:      "Total number of connections disposed (never returned to the queue), per address.",
		}, []string{"address"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boltstream",
			Subsystem: "pool",
			Name:      "validation_failed_total",
			Help:      "Total number of connections that failed RESET validation on release, per address.",
		}, []string{"address"}),
	}
}

// Collectors returns every collector, for bulk registration:
//
//	for _, c := range m.Collectors() { registry.MustRegister(c) }
func (m *PoolMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.live, m.available, m.acquiredTotal, m.disposedTotal, m.validationFailures}
}

func (m *PoolMetrics) RecordAcquire(address string) {
	m.acquiredTotal.WithLabelValues(address).Inc()
}

func (m *PoolMetrics) SetLive(address string, n int) {
	m.live.WithLabelValues(address).Set(float64(n))
}

func (m *PoolMetrics) SetAvailable(address string, n int) {
	m.available.WithLabelValues(address).Set(float64(n))
}

func (m *PoolMetrics) RecordDisposed(address string) {
	m.disposedTotal.WithLabelValues(address).Inc()
}

func (m *PoolMetrics) RecordValidationFailed(address string) {
	m.validationFailures.WithLabelValues(address).Inc()
}
