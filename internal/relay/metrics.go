package relay

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"vrrelay/internal/frame"
	"vrrelay/pkg/vrevent"
)

// Metrics exports relay activity as Prometheus series. It is an Observer.
type Metrics struct {
	clients        prometheus.Gauge
	connections    prometheus.Counter
	events         *prometheus.CounterVec
	deliveries     prometheus.Counter
	sendFailures   prometheus.Counter
	rejectedFrames *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vrrelay",
			Name:      "connected_clients",
			Help:      "Number of TCP clients currently registered.",
		}),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vrrelay",
			Name:      "connections_total",
			Help:      "TCP clients accepted since start.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vrrelay",
			Name:      "events_relayed_total",
			Help:      "Events relayed, by payload type.",
		}, []string{"type"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vrrelay",
			Name:      "event_deliveries_total",
			Help:      "Frames successfully written to destinations.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vrrelay",
			Name:      "event_send_failures_total",
			Help:      "Frame writes that failed and caused a client drop.",
		}),
		rejectedFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vrrelay",
			Name:      "frames_rejected_total",
			Help:      "Inbound frames discarded without relaying.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.clients, m.connections, m.events, m.deliveries, m.sendFailures, m.rejectedFrames)
	}
	return m
}

func (m *Metrics) ClientConnected(ClientInfo) {
	m.clients.Inc()
	m.connections.Inc()
}

func (m *Metrics) ClientDropped(ClientInfo) {
	m.clients.Dec()
}

func (m *Metrics) EventRelayed(e vrevent.Event, _ ClientInfo, delivered, failed int) {
	m.events.WithLabelValues(typeLabel(e.Type())).Inc()
	m.deliveries.Add(float64(delivered))
	m.sendFailures.Add(float64(failed))
}

func (m *Metrics) FrameRejected(_ ClientInfo, err error) {
	reason := "decode"
	if errors.Is(err, frame.ErrFrameTooLarge) {
		reason = "too_large"
	}
	m.rejectedFrames.WithLabelValues(reason).Inc()
}

func typeLabel(t vrevent.TypeTag) string {
	if t == vrevent.TypeNone {
		return "none"
	}
	return string(t)
}
