// Package metrics provides Prometheus metrics for a rclgo Context: counts
// of writes and write errors, mismatched responses, action goal
// transitions, active goals, and discovery broadcasts, registered against a
// caller-supplied registry.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	WritesTotal            = "rclgo_writes_total"
	WriteErrorsTotal       = "rclgo_write_errors_total"
	ResponsesMismatched    = "rclgo_responses_mismatched_total"
	GoalTransitionsTotal   = "rclgo_goal_transitions_total"
	ActiveGoals            = "rclgo_active_goals"
	DiscoveryBroadcastsTot = "rclgo_discovery_broadcasts_total"
)

// Metrics holds the Prometheus collectors this library populates.
type Metrics struct {
	WritesTotal          *prometheus.CounterVec
	WriteErrorsTotal     *prometheus.CounterVec
	ResponsesMismatched  prometheus.Counter
	GoalTransitionsTotal *prometheus.CounterVec
	ActiveGoals          prometheus.Gauge
	DiscoveryBroadcasts  prometheus.Counter
}

// NewMetrics creates a new set of metrics and registers them with the
// supplied registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		WritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: WritesTotal,
			Help: "Total number of samples written, by topic kind (request, response, feedback, status, parameter_event).",
		}, []string{"kind"}),
		WriteErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: WriteErrorsTotal,
			Help: "Total number of failed writes, by topic kind and whether the failure was WouldBlock.",
		}, []string{"kind", "would_block"}),
		ResponsesMismatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: ResponsesMismatched,
			Help: "Total number of responses received whose RmwRequestId did not match the caller's outstanding request.",
		}),
		GoalTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: GoalTransitionsTotal,
			Help: "Total number of action goal state transitions, by resulting state.",
		}, []string{"state"}),
		ActiveGoals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: ActiveGoals,
			Help: "Number of goals currently tracked by action servers in this process that have not reached a terminal state.",
		}),
		DiscoveryBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: DiscoveryBroadcastsTot,
			Help: "Total number of ParticipantEntitiesInfo broadcasts sent on ros_discovery_info.",
		}),
	}

	registry.MustRegister(
		m.WritesTotal,
		m.WriteErrorsTotal,
		m.ResponsesMismatched,
		m.GoalTransitionsTotal,
		m.ActiveGoals,
		m.DiscoveryBroadcasts,
	)
	return m
}

// NopMetrics returns a Metrics value backed by an unregistered, private
// registry — usable as a default when the embedding application does not
// want to wire up its own Prometheus registry.
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// RecordWrite records the outcome of one DDS write, by topic kind (request,
// response, feedback, status, parameter_event). m may be nil, in which case
// RecordWrite is a no-op — every call site can hold metrics optionally
// without a nil check of its own.
func (m *Metrics) RecordWrite(kind string, wouldBlock bool, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.WriteErrorsTotal.WithLabelValues(kind, strconv.FormatBool(wouldBlock)).Inc()
		return
	}
	m.WritesTotal.WithLabelValues(kind).Inc()
}

// RecordMismatch records a response sample whose RmwRequestId did not match
// any outstanding request. m may be nil.
func (m *Metrics) RecordMismatch() {
	if m == nil {
		return
	}
	m.ResponsesMismatched.Inc()
}
