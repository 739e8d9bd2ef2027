package coordinator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report coordinator activity.
type Metrics struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	transitions       *prometheus.CounterVec
	sessionEvents     *prometheus.CounterVec
	liveSessions      prometheus.Gauge
}

// MustNewMetrics constructs and registers the coordinator collectors with
// reg. Registration errors panic; pass a fresh registry in tests.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portalops",
				Subsystem: "service",
				Name:      "operations_total",
				Help:      "Task service calls by operation and outcome kind.",
			},
			[]string{"operation", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "portalops",
				Subsystem: "service",
				Name:      "operation_duration_seconds",
				Help:      "Duration of task service calls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portalops",
				Subsystem: "tasks",
				Name:      "status_transitions_total",
				Help:      "Applied task status transitions.",
			},
			[]string{"from", "to"},
		),
		sessionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "portalops",
				Subsystem: "sessions",
				Name:      "events_total",
				Help:      "Session lifecycle events.",
			},
			[]string{"event"},
		),
		liveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "portalops",
				Subsystem: "sessions",
				Name:      "live",
				Help:      "REQUESTED or ATTACHED sessions seen by the last sweep.",
			},
		),
	}

	reg.MustRegister(m.operations, m.operationDuration, m.transitions, m.sessionEvents, m.liveSessions)
	return m
}

// ObserveOperation records one service call
func (m *Metrics) ObserveOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncTransition counts an applied status transition
func (m *Metrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// IncSessionEvent counts a session lifecycle event
func (m *Metrics) IncSessionEvent(event EventType) {
	if m == nil {
		return
	}
	m.sessionEvents.WithLabelValues(string(event)).Inc()
}

// SetLiveSessions records the number of live sessions
func (m *Metrics) SetLiveSessions(n int) {
	if m == nil {
		return
	}
	m.liveSessions.Set(float64(n))
}
