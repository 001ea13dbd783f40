package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"caseflow/internal/cases/metrics"
	"caseflow/internal/cases/models"
	"caseflow/internal/platform/kafka/consumer"
)

// Handler materializes case events consumed from Kafka.
type Handler struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(store Store, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{store: store, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle decodes one record. Malformed records are logged and committed;
// store failures are returned so the consumer retries them.
func (h *Handler) Handle(ctx context.Context, msg *consumer.Message) error {
	var event models.CaseEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.reject("failed to unmarshal case event", msg, err)
		return nil
	}
	if event.EventID.IsNil() || event.Case == nil || event.TenantID == "" || event.CellID == "" {
		h.reject("case event missing required fields", msg, nil)
		return nil
	}
	return h.Record(ctx, &event)
}

// Record appends event to the store. It doubles as an in-memory emitter subscriber.
func (h *Handler) Record(ctx context.Context, event *models.CaseEvent) error {
	entry := models.AuditEntryFromEvent(event)
	if err := h.store.Append(ctx, entry); err != nil {
		h.logger.Error("failed to store case audit entry",
			"event_id", entry.EventID,
			"case_id", entry.CaseID,
			"error", err,
		)
		return fmt.Errorf("store case audit entry: %w", err)
	}
	if h.metrics != nil {
		h.metrics.IncAuditRecorded()
	}
	h.logger.Debug("stored case audit entry",
		"event_id", entry.EventID,
		"event_type", entry.EventType,
		"case_id", entry.CaseID,
	)
	return nil
}

func (h *Handler) reject(reason string, msg *consumer.Message, err error) {
	if h.metrics != nil {
		h.metrics.IncAuditRejected()
	}
	h.logger.Error(reason,
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"error", err,
	)
}
