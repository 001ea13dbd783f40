package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/sentinel"
)

// transition describes one guarded mutation of a stored case.
type transition struct {
	operation string
	event     models.EventType
	check     func(c *models.Case) error
	// apply mutates the clone and returns the event metadata.
	apply func(c *models.Case, now time.Time) map[string]any
}

// mutate runs the optimistic concurrency guard: read, compare the caller's
// expected version, apply to a clone at Version+1 and write only if the stored
// version is still the one read. A lost race is reported as Conflict and
// nothing is written or published.
func (s *Service) mutate(ctx context.Context, scope models.Scope, caseID id.CaseID, expectedVersion *int64, t transition) (result *models.Case, err error) {
	ctx, span := startSpan(ctx, "cases."+t.operation, scope, attribute.String("case_id", caseID.String()))
	defer func() { endSpan(span, err) }()
	defer s.observe(t.operation, time.Now())

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	current, err := s.cases.FindByID(ctx, scope, caseID)
	if err != nil {
		return nil, translate(err, "load case")
	}
	if expectedVersion != nil && *expectedVersion != current.Version {
		s.incConflict(t.operation)
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"case version is %d, expected %d", current.Version, *expectedVersion)
	}
	if err := t.check(current); err != nil {
		return nil, err
	}

	// A request that started before the last committed write must not
	// move updatedAt backwards.
	at := now(ctx)
	if at.Before(current.UpdatedAt) {
		at = current.UpdatedAt
	}
	next := current.Clone()
	metadata := t.apply(next, at)
	next.Version = current.Version + 1

	if err := s.cases.UpdateIfVersion(ctx, next, current.Version); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.incConflict(t.operation)
		}
		return nil, translate(err, t.operation+" case")
	}

	if s.metrics != nil {
		s.metrics.IncTransition(string(t.event))
	}
	s.logAudit(ctx, t.event, next)
	s.publish(ctx, models.NewCaseEvent(t.event, next, metadata, at))
	return next, nil
}
