package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector defines the interface for collecting gateway metrics
type MetricsCollector interface {
	ConnectionOpened()
	ConnectionClosed()
	HandshakeRejected(reason string)
	MessageSent(eventType EventType)
	MessageDropped(eventType EventType)
	PushFailed(eventType EventType)
	TickCompleted(users int, duration time.Duration)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) ConnectionOpened()                {}
func (NoOpMetricsCollector) ConnectionClosed()                {}
func (NoOpMetricsCollector) HandshakeRejected(string)         {}
func (NoOpMetricsCollector) MessageSent(EventType)            {}
func (NoOpMetricsCollector) MessageDropped(EventType)         {}
func (NoOpMetricsCollector) PushFailed(EventType)             {}
func (NoOpMetricsCollector) TickCompleted(int, time.Duration) {}

// PrometheusMetrics implements MetricsCollector using Prometheus
type PrometheusMetrics struct {
	connections       prometheus.Gauge
	handshakeRejected *prometheus.CounterVec
	messagesSent      *prometheus.CounterVec
	messagesDropped   *prometheus.CounterVec
	pushFailures      *prometheus.CounterVec
	tickDuration      prometheus.Histogram
	tickUsers         prometheus.Gauge
}

// NewPrometheusMetrics registers the gateway collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "timekeeper",
			Subsystem: "gateway",
			Name:      "connections",
			Help:      "Number of registered websocket connections.",
		}),
		handshakeRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timekeeper",
			Subsystem: "gateway",
			Name:      "handshakes_rejected_total",
			Help:      "Websocket handshakes closed before registration.",
		}, []string{"reason"}),
		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timekeeper",
			Subsystem: "gateway",
			Name:      "messages_sent_total",
			Help:      "Messages queued for delivery to a connection.",
		}, []string{"type"}),
		messagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timekeeper",
			Subsystem: "gateway",
			Name:      "messages_dropped_total",
			Help:      "Messages not delivered because the connection was closed or full.",
		}, []string{"type"}),
		pushFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "timekeeper",
			Subsystem: "gateway",
			Name:      "push_failures_total",
			Help:      "Pushes skipped because timers could not be loaded.",
		}, []string{"type"}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "timekeeper",
			Subsystem: "gateway",
			Name:      "heartbeat_duration_seconds",
			Help:      "Time spent pushing progress to all users in one heartbeat.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		tickUsers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "timekeeper",
			Subsystem: "gateway",
			Name:      "heartbeat_users",
			Help:      "Users covered by the last heartbeat.",
		}),
	}
}

func (m *PrometheusMetrics) ConnectionOpened() { m.connections.Inc() }
func (m *PrometheusMetrics) ConnectionClosed() { m.connections.Dec() }

func (m *PrometheusMetrics) HandshakeRejected(reason string) {
	m.handshakeRejected.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) MessageSent(eventType EventType) {
	m.messagesSent.WithLabelValues(string(eventType)).Inc()
}

func (m *PrometheusMetrics) MessageDropped(eventType EventType) {
	m.messagesDropped.WithLabelValues(string(eventType)).Inc()
}

func (m *PrometheusMetrics) PushFailed(eventType EventType) {
	m.pushFailures.WithLabelValues(string(eventType)).Inc()
}

func (m *PrometheusMetrics) TickCompleted(users int, duration time.Duration) {
	m.tickUsers.Set(float64(users))
	m.tickDuration.Observe(duration.Seconds())
}
