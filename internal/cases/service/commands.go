package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

// Create validates req, allocates a case number and stores a new OPEN case.
// Nothing is allocated when validation fails.
func (s *Service) Create(ctx context.Context, scope models.Scope, actor id.UserID, req models.CreateCaseRequest) (result *models.Case, err error) {
	ctx, span := startSpan(ctx, "cases.create", scope, attribute.String("case_type", string(req.CaseType)))
	defer func() { endSpan(span, err) }()
	defer s.observe("create", time.Now())

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "actor is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	at := now(ctx)
	number, err := s.numbers.Next(ctx, req.CaseType, scope.TenantID, at)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAllocationFailure) && s.metrics != nil {
			s.metrics.IncAllocationFailure()
		}
		return nil, err
	}

	c, err := models.NewCase(id.NewCaseID(), number, req, scope, actor, at)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, translate(err, "create case")
	}

	if s.metrics != nil {
		s.metrics.IncCaseCreated(string(c.CaseType))
		s.metrics.IncTransition(string(models.EventCaseCreated))
	}
	s.logAudit(ctx, models.EventCaseCreated, c, "created_by", actor)
	s.publish(ctx, models.NewCaseEvent(models.EventCaseCreated, c, nil, at))
	return c, nil
}

// Update patches the editable fields of an active case.
func (s *Service) Update(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.UpdateCaseRequest) (*models.Case, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "update must change at least one field")
	}
	return s.mutate(ctx, scope, caseID, req.ExpectedVersion, transition{
		operation: "update",
		event:     models.EventCaseUpdated,
		check:     (*models.Case).CanUpdate,
		apply: func(c *models.Case, at time.Time) map[string]any {
			c.ApplyUpdate(req, at)
			return map[string]any{models.MetaChangedFields: changedFields(req)}
		},
	})
}

// Assign sets the assignee. An OPEN case moves to IN_PROGRESS; other active
// statuses are kept.
func (s *Service) Assign(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.AssignRequest) (*models.Case, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, scope, caseID, req.ExpectedVersion, transition{
		operation: "assign",
		event:     models.EventCaseAssigned,
		check:     (*models.Case).CanAssign,
		apply: func(c *models.Case, at time.Time) map[string]any {
			previous := c.ApplyAssignment(req.AssigneeID, at)
			meta := map[string]any{models.MetaAssigneeID: req.AssigneeID.String()}
			if previous != nil {
				meta[models.MetaPreviousAssignee] = previous.String()
			}
			return meta
		},
	})
}

// Close moves an active case to CLOSED and stamps ClosedAt.
func (s *Service) Close(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.TransitionRequest) (*models.Case, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, scope, caseID, req.ExpectedVersion, transition{
		operation: "close",
		event:     models.EventCaseClosed,
		check:     (*models.Case).CanClose,
		apply: func(c *models.Case, at time.Time) map[string]any {
			c.ApplyClose(at)
			return map[string]any{
				models.MetaClosureReason: req.Reason,
				models.MetaClosedAt:      at.Format(time.RFC3339Nano),
			}
		},
	})
}

// Escalate moves an active case to ESCALATED and raises its priority to at
// least HIGH.
func (s *Service) Escalate(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.TransitionRequest) (*models.Case, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, scope, caseID, req.ExpectedVersion, transition{
		operation: "escalate",
		event:     models.EventCaseEscalated,
		check:     (*models.Case).CanEscalate,
		apply: func(c *models.Case, at time.Time) map[string]any {
			previous := c.ApplyEscalation(at)
			return map[string]any{
				models.MetaEscalationReason: req.Reason,
				models.MetaPreviousPriority: string(previous),
			}
		},
	})
}

// SubmitForReview moves an IN_PROGRESS or ESCALATED case to PENDING_REVIEW.
func (s *Service) SubmitForReview(ctx context.Context, scope models.Scope, caseID id.CaseID, req models.TransitionRequest) (*models.Case, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, scope, caseID, req.ExpectedVersion, transition{
		operation: "submit_for_review",
		event:     models.EventCaseReviewRequested,
		check:     (*models.Case).CanSubmitForReview,
		apply: func(c *models.Case, at time.Time) map[string]any {
			c.ApplySubmitForReview(at)
			return map[string]any{models.MetaReviewNote: req.Reason}
		},
	})
}

// Archive soft-deletes a case. The record is kept with status ARCHIVED.
func (s *Service) Archive(ctx context.Context, scope models.Scope, caseID id.CaseID, expectedVersion *int64) (*models.Case, error) {
	return s.mutate(ctx, scope, caseID, expectedVersion, transition{
		operation: "archive",
		event:     models.EventCaseDeleted,
		check:     (*models.Case).CanArchive,
		apply: func(c *models.Case, at time.Time) map[string]any {
			c.ApplyArchive(at)
			return nil
		},
	})
}

func changedFields(req models.UpdateCaseRequest) []string {
	var fields []string
	if req.Title != nil {
		fields = append(fields, "title")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	if req.Priority != nil {
		fields = append(fields, "priority")
	}
	if req.Tags != nil {
		fields = append(fields, "tags")
	}
	if req.Metadata != nil {
		fields = append(fields, "metadata")
	}
	return fields
}
