package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the case lifecycle module.
type Metrics struct {
	CasesCreated        *prometheus.CounterVec
	Transitions         *prometheus.CounterVec
	VersionConflicts    *prometheus.CounterVec
	AllocationFailures  prometheus.Counter
	OperationDuration   *prometheus.HistogramVec
	EventsPublished     *prometheus.CounterVec
	PublishFailures     *prometheus.CounterVec
	EventsDropped       prometheus.Counter
	CircuitBreakerState prometheus.Gauge
	AuditRecorded       prometheus.Counter
	AuditRejected       prometheus.Counter
}

// New registers the case metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CasesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_cases_created_total",
			Help: "Total number of cases created, by case type",
		}, []string{"case_type"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_case_transitions_total",
			Help: "Lifecycle mutations committed, by event type",
		}, []string{"event_type"}),
		VersionConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_case_version_conflicts_total",
			Help: "Mutations rejected because the case version moved, by operation",
		}, []string{"operation"}),
		AllocationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_case_number_allocation_failures_total",
			Help: "Case number allocations that failed",
		}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caseflow_case_operation_duration_seconds",
			Help:    "Duration of case service operations",
			Buckets: durationBuckets,
		}, []string{"operation"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_case_events_published_total",
			Help: "Case events delivered to the event stream, by event type",
		}, []string{"event_type"}),
		PublishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "caseflow_case_event_publish_failures_total",
			Help: "Case events that failed to publish, by event type",
		}, []string{"event_type"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_case_events_circuit_breaker_dropped_total",
			Help: "Case events dropped while the publish circuit breaker was open",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "caseflow_case_events_circuit_breaker_state",
			Help: "Current publish circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
		AuditRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_case_audit_recorded_total",
			Help: "Case events materialized into the audit log",
		}),
		AuditRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "caseflow_case_audit_rejected_total",
			Help: "Malformed case events skipped by the audit consumer",
		}),
	}
}

func (m *Metrics) IncCaseCreated(caseType string) {
	m.CasesCreated.WithLabelValues(caseType).Inc()
}

func (m *Metrics) IncTransition(eventType string) {
	m.Transitions.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncVersionConflict(operation string) {
	m.VersionConflicts.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncAllocationFailure() {
	m.AllocationFailures.Inc()
}

// ObserveOperation records the duration of a service operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncPublishFailure(eventType string) {
	m.PublishFailures.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncEventsDropped() {
	m.EventsDropped.Inc()
}

// SetCircuitOpen sets the circuit breaker gauge (1 = open, 0 = closed).
func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.CircuitBreakerState.Set(1)
		return
	}
	m.CircuitBreakerState.Set(0)
}

func (m *Metrics) IncAuditRecorded() {
	m.AuditRecorded.Inc()
}

func (m *Metrics) IncAuditRejected() {
	m.AuditRejected.Inc()
}
