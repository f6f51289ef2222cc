// Package metrics exposes Prometheus instrumentation for the Agent Bridge's
// command-dispatch model: one connection carries many concurrently
// in-flight commands instead of a single proxied byte stream.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bridge process.
type Metrics struct {
	ConnectionsTotal   prometheus.Counter
	ActiveConnections  prometheus.Gauge
	CommandsTotal      *prometheus.CounterVec
	CommandErrorsTotal *prometheus.CounterVec
	CommandDuration    *prometheus.HistogramVec
	EventsEmittedTotal *prometheus.CounterVec
	SyftboxState       prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "biovaultcore_connections_total",
			Help: "Total bridge connections accepted",
		}),
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "biovaultcore_active_connections",
			Help: "Current active bridge connections",
		}),
		CommandsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "biovaultcore_commands_total",
			Help: "Total commands dispatched, by command name",
		}, []string{"command"}),
		CommandErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "biovaultcore_command_errors_total",
			Help: "Total command failures, by command name and error kind",
		}, []string{"command", "kind"}),
		CommandDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biovaultcore_command_duration_seconds",
			Help:    "Command handler latency, by command name",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		EventsEmittedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "biovaultcore_events_emitted_total",
			Help: "Total streamed event frames emitted, by kind",
		}, []string{"kind"}),
		SyftboxState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "biovaultcore_syftbox_state",
			Help: "SyftBox adapter state (0=stopped,1=starting,2=running,3=stopping,4=error)",
		}),
	}
}
