package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncCaseCreated("FRAUD")
	m.IncCaseCreated("FRAUD")
	m.IncTransition("CASE_CLOSED")
	m.IncVersionConflict("close")
	m.IncPublishFailure("CASE_CREATED")
	m.IncEventsDropped()
	m.ObserveOperation("create", time.Now())

	assert.InDelta(t, 2, testutil.ToFloat64(m.CasesCreated.WithLabelValues("FRAUD")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Transitions.WithLabelValues("CASE_CLOSED")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.VersionConflicts.WithLabelValues("close")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.PublishFailures.WithLabelValues("CASE_CREATED")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EventsDropped), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestSetCircuitOpen(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetCircuitOpen(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.CircuitBreakerState), 0)

	m.SetCircuitOpen(false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.CircuitBreakerState), 0)
}
