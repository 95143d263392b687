// Package metrics exposes Prometheus collectors for the chat relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the relay's collectors.
type Metrics struct {
	SessionsActive prometheus.Gauge
	FramesReceived prometheus.Counter
	ProtocolErrors prometheus.Counter
	SendsDropped   prometheus.Counter
}

// New registers the relay collectors on reg. rooms reports the current room count.
func New(reg prometheus.Registerer, rooms func() int) *Metrics {
	m := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Connected chat sessions.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_frames_received_total",
			Help: "Inbound websocket frames handed to sessions.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_protocol_errors_total",
			Help: "Inbound frames rejected as malformed or of unknown type.",
		}),
		SendsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_sends_dropped_total",
			Help: "Outbound frames dropped because the connection was closed or backed up.",
		}),
	}
	reg.MustRegister(
		m.SessionsActive,
		m.FramesReceived,
		m.ProtocolErrors,
		m.SendsDropped,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "chat_rooms",
			Help: "Rooms created since start.",
		}, func() float64 { return float64(rooms()) }),
	)
	return m
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
