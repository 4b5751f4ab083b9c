// Package metrics exposes the gateway's Prometheus instrumentation as a
// plain value handed to sessions at construction time, rather than a
// package-level singleton.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every metric the gateway records. A nil *Collector is
// valid everywhere it's consulted: sessions guard each use with a nil
// check so metrics stay optional.
type Collector struct {
	SessionsTotal  prometheus.Counter
	SessionsActive prometheus.Gauge
	SpawnFailures  prometheus.Counter
	ChildExits     prometheus.Counter
	BytesIn        prometheus.Counter
	BytesOut       prometheus.Counter
	ProtocolErrors prometheus.Counter
}

// New registers the gateway's metrics on reg and returns the collector.
// Pass prometheus.DefaultRegisterer for the process-wide default registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		SessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "webgate",
			Name:      "sessions_total",
			Help:      "Total number of client connections accepted.",
		}),
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "webgate",
			Name:      "sessions_active",
			Help:      "Number of client connections currently open.",
		}),
		SpawnFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "webgate",
			Name:      "spawn_failures_total",
			Help:      "Total number of child process spawn attempts that failed.",
		}),
		ChildExits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "webgate",
			Name:      "child_exits_total",
			Help:      "Total number of spawned child processes that have exited.",
		}),
		BytesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "webgate",
			Name:      "bytes_in_total",
			Help:      "Total bytes read from WebSocket client sockets.",
		}),
		BytesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "webgate",
			Name:      "bytes_out_total",
			Help:      "Total bytes written to WebSocket client sockets.",
		}),
		ProtocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "webgate",
			Name:      "protocol_errors_total",
			Help:      "Total number of malformed or out-of-precondition control messages.",
		}),
	}
}
