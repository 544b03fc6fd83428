// Package metrics holds the Prometheus instruments for the activity pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons.
const (
	ReasonDisabled    = "disabled"
	ReasonCircuitOpen = "circuit_open"
	ReasonLaneFull    = "lane_full"
	ReasonLaneClosed  = "lane_closed"
	ReasonEnqueue     = "enqueue_error"
	ReasonInvalid     = "invalid"
	ReasonCapture     = "capture_error"
)

type Metrics struct {
	Enqueued        *prometheus.CounterVec
	Dropped         *prometheus.CounterVec
	Persisted       prometheus.Counter
	PersistRetries  prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
	BreakerState    prometheus.Gauge
	LaneDepth       prometheus.Gauge
}

// New registers the instruments with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Enqueued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vowly_activity_enqueued_total",
			Help: "Activity records handed to the background lane",
		}, []string{"event"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vowly_activity_dropped_total",
			Help: "Activity records dropped before reaching the lane",
		}, []string{"reason"}),
		Persisted: f.NewCounter(prometheus.CounterOpts{
			Name: "vowly_activity_persisted_total",
			Help: "Activity records written to the store",
		}),
		PersistRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "vowly_activity_persist_retries_total",
			Help: "Failed persistence attempts that were retried",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "vowly_activity_persist_failures_total",
			Help: "Activity records dropped after exhausting persistence attempts",
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "vowly_activity_persist_duration_seconds",
			Help:    "Duration of a single persistence attempt",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "vowly_activity_circuit_breaker_state",
			Help: "Activity sink circuit breaker state (0=closed, 1=half-open, 2=open)",
		}),
		LaneDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "vowly_activity_lane_depth",
			Help: "Records buffered in the in-process lane",
		}),
	}
}

func (m *Metrics) IncEnqueued(event string) {
	if m == nil {
		return
	}
	m.Enqueued.WithLabelValues(event).Inc()
}

func (m *Metrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncPersisted() {
	if m == nil {
		return
	}
	m.Persisted.Inc()
}

func (m *Metrics) IncPersistRetries() {
	if m == nil {
		return
	}
	m.PersistRetries.Inc()
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

// ObservePersist records one attempt. Call with time.Now() taken before it.
func (m *Metrics) ObservePersist(start time.Time) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(time.Since(start).Seconds())
}

// SetBreakerState maps the breaker position onto the gauge.
func (m *Metrics) SetBreakerState(state string) {
	if m == nil {
		return
	}
	switch state {
	case "open":
		m.BreakerState.Set(2)
	case "half-open":
		m.BreakerState.Set(1)
	default:
		m.BreakerState.Set(0)
	}
}

func (m *Metrics) SetLaneDepth(n int) {
	if m == nil {
		return
	}
	m.LaneDepth.Set(float64(n))
}
