package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"caseflow/internal/cases/metrics"
	"caseflow/internal/cases/models"
	"caseflow/internal/platform/kafka/producer"
	"caseflow/pkg/platform/circuit"
)

// Header keys set on every published record.
const (
	HeaderEventType = "event_type"
	HeaderTenantID  = "tenant_id"
	HeaderCellID    = "cell_id"
)

// Publisher is the subset of producer.Producer used by the emitter.
type Publisher interface {
	Publish(ctx context.Context, msgs ...producer.Message) error
}

// KafkaEmitter writes each event to the audit topic keyed by case id and to
// the notification topic keyed by tenant id.
type KafkaEmitter struct {
	publisher         Publisher
	auditTopic        string
	notificationTopic string
	breaker           *circuit.Breaker
	logger            *slog.Logger
	metrics           *metrics.Metrics
}

type KafkaOption func(*KafkaEmitter)

func WithLogger(logger *slog.Logger) KafkaOption {
	return func(e *KafkaEmitter) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) KafkaOption {
	return func(e *KafkaEmitter) { e.metrics = m }
}

func WithBreaker(b *circuit.Breaker) KafkaOption {
	return func(e *KafkaEmitter) { e.breaker = b }
}

func NewKafkaEmitter(publisher Publisher, auditTopic, notificationTopic string, opts ...KafkaOption) *KafkaEmitter {
	e := &KafkaEmitter{
		publisher:         publisher,
		auditTopic:        auditTopic,
		notificationTopic: notificationTopic,
		breaker:           circuit.New("case-events"),
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *KafkaEmitter) Publish(ctx context.Context, event *models.CaseEvent) error {
	if event == nil || event.Case == nil {
		return fmt.Errorf("publish: event has no case snapshot")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal case event: %w", err)
	}
	// An admitted call must always record its outcome.
	if !e.breaker.Allow() {
		if e.metrics != nil {
			e.metrics.IncEventsDropped()
		}
		return ErrCircuitOpen
	}
	headers := map[string]string{
		HeaderEventType: string(event.EventType),
		HeaderTenantID:  event.TenantID,
		HeaderCellID:    event.CellID,
	}
	msgs := []producer.Message{
		{Topic: e.auditTopic, Key: []byte(event.Case.ID.String()), Value: payload, Headers: headers},
		{Topic: e.notificationTopic, Key: []byte(event.TenantID), Value: payload, Headers: headers},
	}

	if err := e.publisher.Publish(ctx, msgs...); err != nil {
		e.recordFailure()
		return fmt.Errorf("publish %s: %w", event.EventType, err)
	}
	e.recordSuccess()
	if e.metrics != nil {
		e.metrics.IncPublished(string(event.EventType))
	}
	return nil
}

func (e *KafkaEmitter) recordFailure() {
	_, change := e.breaker.RecordFailure()
	if change.Opened {
		e.logger.Warn("case event circuit breaker opened", "breaker", e.breaker.Name())
		if e.metrics != nil {
			e.metrics.SetCircuitOpen(true)
		}
	}
}

func (e *KafkaEmitter) recordSuccess() {
	_, change := e.breaker.RecordSuccess()
	if change.Closed {
		e.logger.Info("case event circuit breaker closed", "breaker", e.breaker.Name())
		if e.metrics != nil {
			e.metrics.SetCircuitOpen(false)
		}
	}
}
