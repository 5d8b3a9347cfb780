package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the live session collectors. A nil *metrics records
// nothing.
type metrics struct {
	activeSessions  prometheus.Gauge
	sessionsCreated prometheus.Counter
	connections     prometheus.Gauge
	messages        *prometheus.CounterVec
	rateLimited     prometheus.Counter
	navigations     *prometheus.CounterVec
	loadFailures    *prometheus.CounterVec
	framesSent      prometheus.Counter
	frameBytes      prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)
	const ns, sub = "bartr", "live"

	return &metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "sessions",
			Help: "Number of live UI sessions",
		}),
		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "sessions_created_total",
			Help: "Total number of live UI sessions created",
		}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub,
			Name: "connections",
			Help: "Number of connected WebSocket clients",
		}),
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "messages_total",
			Help: "Client messages received by kind",
		}, []string{"kind"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "rate_limited_total",
			Help: "Client messages dropped by the session rate limit",
		}),
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "navigations_total",
			Help: "Resolved routes by component and whether the path matched",
		}, []string{"component", "matched"}),
		loadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "load_failures_total",
			Help: "View loads that failed by component",
		}, []string{"component"}),
		framesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "frames_sent_total",
			Help: "Rendered frames pushed to clients",
		}),
		frameBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "frame_bytes",
			Help:    "Size of pushed frames in bytes",
			Buckets: []float64{1024, 4096, 16384, 65536, 262144},
		}),
	}
}

func (m *metrics) observer() func(component string, matched bool) {
	if m == nil {
		return nil
	}
	return func(component string, matched bool) {
		label := "false"
		if matched {
			label = "true"
		}
		m.navigations.WithLabelValues(component, label).Inc()
	}
}

func (m *metrics) loadObserver() func(component string, err error) {
	if m == nil {
		return nil
	}
	return func(component string, err error) {
		if err != nil {
			m.loadFailures.WithLabelValues(component).Inc()
		}
	}
}

func (m *metrics) sessionOpened() {
	if m != nil {
		m.activeSessions.Inc()
		m.sessionsCreated.Inc()
	}
}

func (m *metrics) sessionClosed() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

func (m *metrics) connected(delta float64) {
	if m != nil {
		m.connections.Add(delta)
	}
}

func (m *metrics) message(kind string) {
	if m != nil {
		m.messages.WithLabelValues(kind).Inc()
	}
}

func (m *metrics) limited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}

func (m *metrics) frame(size int) {
	if m != nil {
		m.framesSent.Inc()
		m.frameBytes.Observe(float64(size))
	}
}
