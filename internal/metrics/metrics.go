// Package metrics collects and exposes Prometheus metrics for the chat core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface the application layer records through.
type Recorder interface {
	SetActiveRooms(n int)
	SetConnectedMembers(n int)
	SetLiveSessions(n int)
	RecordMessage()
}

// Collector implements Recorder on top of a Prometheus registry.
type Collector struct {
	activeRooms      prometheus.Gauge
	connectedMembers prometheus.Gauge
	liveSessions     prometheus.Gauge
	messagesTotal    prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		activeRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skyrc_active_rooms",
			Help: "Number of rooms with at least one member.",
		}),
		connectedMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skyrc_connected_members",
			Help: "Number of connections currently joined to a room.",
		}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skyrc_live_sessions",
			Help: "Number of authenticated sessions not yet expired or deleted.",
		}),
		messagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skyrc_messages_total",
			Help: "Total chat messages broadcast to rooms.",
		}),
	}

	reg.MustRegister(
		c.activeRooms,
		c.connectedMembers,
		c.liveSessions,
		c.messagesTotal,
	)

	return c
}

func (c *Collector) SetActiveRooms(n int)      { c.activeRooms.Set(float64(n)) }
func (c *Collector) SetConnectedMembers(n int) { c.connectedMembers.Set(float64(n)) }
func (c *Collector) SetLiveSessions(n int)     { c.liveSessions.Set(float64(n)) }
func (c *Collector) RecordMessage()            { c.messagesTotal.Inc() }

// Handler returns the HTTP handler serving the registry's metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Nop discards all recordings. Useful for tests.
type Nop struct{}

func (Nop) SetActiveRooms(int)      {}
func (Nop) SetConnectedMembers(int) {}
func (Nop) SetLiveSessions(int)     {}
func (Nop) RecordMessage()          {}
