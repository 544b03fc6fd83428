package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncDropped(ReasonCircuitOpen)
	m.IncDropped(ReasonCircuitOpen)
	m.IncEnqueued("created")
	m.IncPersistFailures()
	m.SetBreakerState("open")
	m.ObservePersist(time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dropped.WithLabelValues(ReasonCircuitOpen)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Enqueued.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState))

	m.SetBreakerState("closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BreakerState))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncDropped(ReasonLaneFull)
		m.IncEnqueued("created")
		m.IncPersisted()
		m.ObservePersist(time.Now())
		m.SetBreakerState("open")
		m.SetLaneDepth(3)
	})
}
