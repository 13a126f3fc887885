package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of the cache service.
type Metrics struct {
	registry *prometheus.Registry

	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	Evictions     *prometheus.CounterVec
	Events        *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

// NewMetrics creates the cache metrics in their own registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	hits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"kind"},
	)

	misses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"kind"},
	)

	evictions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of gene entries evicted",
		},
		[]string{"kind"},
	)

	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Total number of invalidation events applied",
		},
		[]string{"event"},
	)

	notifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "sibling_notifications_total",
			Help:      "Total number of sibling notifications by result",
		},
		[]string{"command", "result"},
	)

	registry.MustRegister(hits, misses, evictions, events, notifications)

	return &Metrics{
		registry:      registry,
		Hits:          hits,
		Misses:        misses,
		Evictions:     evictions,
		Events:        events,
		Notifications: notifications,
	}
}

// Registry returns the Prometheus registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
