package metrics

import "github.com/prometheus/client_golang/prometheus"

// CommandMetrics counts inbound socket commands.
type CommandMetrics struct {
	Commands *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewCommandMetrics creates and registers command metrics on the given registry.
func NewCommandMetrics(reg prometheus.Registerer) *CommandMetrics {
	m := &CommandMetrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "total",
			Help:      "Total socket commands by event and result (success or error kind).",
		}, []string{"event", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Time spent handling a socket command.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		}, []string{"event"}),
	}

	reg.MustRegister(m.Commands, m.Duration)
	return m
}
