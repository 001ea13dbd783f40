package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"caseflow/internal/cases/events"
	"caseflow/internal/cases/metrics"
	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/middleware/metadata"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/requestcontext"
)

// CaseStore is the case registry. Implementations return sentinel errors.
type CaseStore interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, scope models.Scope, caseID id.CaseID) (*models.Case, error)
	FindByCaseNumber(ctx context.Context, scope models.Scope, number string) (*models.Case, error)
	UpdateIfVersion(ctx context.Context, c *models.Case, expectedVersion int64) error
	List(ctx context.Context, scope models.Scope, filter models.ListFilter, offset, limit int) ([]*models.Case, error)
	Count(ctx context.Context, scope models.Scope, filter models.ListFilter) (int64, error)
	Overdue(ctx context.Context, scope models.Scope, cutoff time.Time, limit int) ([]*models.Case, error)
}

// NumberAllocator issues case numbers.
type NumberAllocator interface {
	Next(ctx context.Context, caseType models.CaseType, tenantID string, now time.Time) (string, error)
}

// HistoryReader reads the materialized audit log of a case.
type HistoryReader interface {
	ListByCase(ctx context.Context, scope models.Scope, caseID id.CaseID) ([]models.AuditEntry, error)
}

var tracer = otel.Tracer("caseflow/cases")

// Service owns the case lifecycle: creation, guarded transitions and queries.
type Service struct {
	cases   CaseStore
	numbers NumberAllocator
	emitter events.Emitter
	history HistoryReader
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithEmitter(e events.Emitter) Option {
	return func(s *Service) {
		s.emitter = e
	}
}

func WithHistory(h HistoryReader) Option {
	return func(s *Service) {
		s.history = h
	}
}

// New constructs a Service. Without WithEmitter events are discarded.
func New(cases CaseStore, numbers NumberAllocator, opts ...Option) *Service {
	s := &Service{
		cases:   cases,
		numbers: numbers,
		emitter: events.Nop{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now is the request clock at the precision Postgres stores.
func now(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
}

// translate maps store errors onto the domain taxonomy. Errors that already
// carry a code pass through unchanged.
func translate(err error, action string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "case was modified by another request")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "case is in the wrong state to "+action)
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to "+action)
	}
}

func startSpan(ctx context.Context, name string, scope models.Scope, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("tenant_id", scope.TenantID),
		attribute.String("cell_id", scope.CellID),
	)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}

// publish hands the event to the emitter. Failures are logged and counted,
// the committed case write stands.
func (s *Service) publish(ctx context.Context, event *models.CaseEvent) {
	if err := s.emitter.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish case event",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"case_id", event.Case.ID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncPublishFailure(string(event.EventType))
		}
	}
}

func (s *Service) logAudit(ctx context.Context, event models.EventType, c *models.Case, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if ip := metadata.GetClientIP(ctx); ip != "" {
		attributes = append(attributes, "client_ip", ip, "user_agent", metadata.GetUserAgent(ctx))
	}
	args := append(attributes,
		"case_id", c.ID,
		"case_number", c.CaseNumber,
		"status", c.Status,
		"version", c.Version,
		"tenant_id", c.TenantID,
		"cell_id", c.CellID,
		"event", string(event),
		"log_type", "audit",
	)
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, start)
	}
}

func (s *Service) incConflict(operation string) {
	if s.metrics != nil {
		s.metrics.IncVersionConflict(operation)
	}
}
