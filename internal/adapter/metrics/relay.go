package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics tracks broadcasts crossing the relay.
type RelayMetrics struct {
	Published       *prometheus.CounterVec
	Received        prometheus.Counter
	LocalFallbacks  prometheus.Counter
	RedisOperations *prometheus.CounterVec
	BreakerState    prometheus.Gauge
}

// NewRelayMetrics creates and registers relay metrics on the given registry.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "published_total",
			Help:      "Total broadcasts published by event and status.",
		}, []string{"event", "status"}),
		Received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "received_total",
			Help:      "Total broadcasts received from the message queue.",
		}),
		LocalFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "local_fallbacks_total",
			Help:      "Total broadcasts delivered locally because the message queue was unavailable.",
		}),
		RedisOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Total Redis operations by operation and status.",
		}, []string{"operation", "status"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "circuit_breaker_state",
			Help:      "Current relay circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}

	reg.MustRegister(m.Published, m.Received, m.LocalFallbacks, m.RedisOperations, m.BreakerState)
	return m
}
