package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ActiveRooms    prometheus.Gauge
	Connections    prometheus.Gauge
	Commands       *prometheus.CounterVec
	CommandErrors  *prometheus.CounterVec
	CommandLatency prometheus.Histogram
	Laydowns       *prometheus.CounterVec
	GamesFinished  *prometheus.CounterVec
	DroppedClients prometheus.Counter
}

// NewMetrics builds the collectors on a private registry so several servers
// (tests included) can coexist in one process.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of rooms held by the registry",
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Number of open websocket connections",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands received, by type",
		}, []string{"type"}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Commands rejected by the game, by error kind",
		}, []string{"kind"}),
		CommandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_seconds",
			Help:      "Time spent applying a command inside its room",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		Laydowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "laydowns_total",
			Help:      "Laydowns resolved, by outcome",
		}, []string{"outcome"}),
		GamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Games that ran to completion, by winner",
		}, []string{"winner"}),
		DroppedClients: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_clients_total",
			Help:      "Clients disconnected because their send queue was full",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ActiveRooms,
		m.Connections,
		m.Commands,
		m.CommandErrors,
		m.CommandLatency,
		m.Laydowns,
		m.GamesFinished,
		m.DroppedClients,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
