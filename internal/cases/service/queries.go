package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

const maxOverdue = models.MaxPageSize

// FindByID returns the case when it exists inside scope. A case in another
// tenant or cell is reported exactly like a missing one.
func (s *Service) FindByID(ctx context.Context, scope models.Scope, caseID id.CaseID) (result *models.Case, err error) {
	ctx, span := startSpan(ctx, "cases.find_by_id", scope, attribute.String("case_id", caseID.String()))
	defer func() { endSpan(span, err) }()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	c, err := s.cases.FindByID(ctx, scope, caseID)
	if err != nil {
		return nil, translate(err, "load case")
	}
	return c, nil
}

// FindByCaseNumber looks a case up by its human-readable number. Malformed
// numbers cannot match anything and are reported as NotFound.
func (s *Service) FindByCaseNumber(ctx context.Context, scope models.Scope, number string) (result *models.Case, err error) {
	ctx, span := startSpan(ctx, "cases.find_by_number", scope, attribute.String("case_number", number))
	defer func() { endSpan(span, err) }()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if !models.IsValidCaseNumber(number) {
		return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	c, err := s.cases.FindByCaseNumber(ctx, scope, number)
	if err != nil {
		return nil, translate(err, "load case")
	}
	return c, nil
}

// List returns one page of scoped cases matching filter, newest first.
func (s *Service) List(ctx context.Context, scope models.Scope, filter models.ListFilter) (result *models.CasePage, err error) {
	ctx, span := startSpan(ctx, "cases.list", scope)
	defer func() { endSpan(span, err) }()
	defer s.observe("list", time.Now())

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	// One extra row tells whether another page exists.
	cases, err := s.cases.List(ctx, scope, filter, filter.Offset(), filter.Size+1)
	if err != nil {
		return nil, translate(err, "list cases")
	}
	page := &models.CasePage{Page: filter.Page, Size: filter.Size}
	if len(cases) > filter.Size {
		page.HasMore = true
		cases = cases[:filter.Size]
	}
	if cases == nil {
		cases = []*models.Case{}
	}
	page.Cases = cases
	return page, nil
}

// Search matches text case-insensitively against title and description.
func (s *Service) Search(ctx context.Context, scope models.Scope, text string, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{Search: text, Page: page, Size: size})
}

func (s *Service) ByStatus(ctx context.Context, scope models.Scope, status models.Status, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{Status: &status, Page: page, Size: size})
}

func (s *Service) ByType(ctx context.Context, scope models.Scope, caseType models.CaseType, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{CaseType: &caseType, Page: page, Size: size})
}

func (s *Service) ByPriority(ctx context.Context, scope models.Scope, priority models.Priority, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{Priority: &priority, Page: page, Size: size})
}

func (s *Service) ByAssignee(ctx context.Context, scope models.Scope, assignee id.UserID, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{AssignedTo: &assignee, Page: page, Size: size})
}

func (s *Service) ByCreator(ctx context.Context, scope models.Scope, creator id.UserID, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{CreatedBy: &creator, Page: page, Size: size})
}

func (s *Service) ByTag(ctx context.Context, scope models.Scope, tag string, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{Tag: tag, Page: page, Size: size})
}

// ByDateRange returns cases created within [from, to], both ends inclusive.
func (s *Service) ByDateRange(ctx context.Context, scope models.Scope, from, to time.Time, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{CreatedFrom: &from, CreatedTo: &to, Page: page, Size: size})
}

// ActiveOnly returns cases in OPEN, IN_PROGRESS, PENDING_REVIEW or ESCALATED.
func (s *Service) ActiveOnly(ctx context.Context, scope models.Scope, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{ActiveOnly: true, Page: page, Size: size})
}

// HighPriorityOnly returns HIGH and CRITICAL cases.
func (s *Service) HighPriorityOnly(ctx context.Context, scope models.Scope, page, size int) (*models.CasePage, error) {
	return s.List(ctx, scope, models.ListFilter{HighPriorityOnly: true, Page: page, Size: size})
}

// Overdue returns IN_PROGRESS cases created more than olderThan ago, oldest first.
func (s *Service) Overdue(ctx context.Context, scope models.Scope, olderThan time.Duration) (result []*models.Case, err error) {
	ctx, span := startSpan(ctx, "cases.overdue", scope, attribute.String("older_than", olderThan.String()))
	defer func() { endSpan(span, err) }()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if olderThan < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "older than must not be negative")
	}
	cases, err := s.cases.Overdue(ctx, scope, now(ctx).Add(-olderThan), maxOverdue)
	if err != nil {
		return nil, translate(err, "list overdue cases")
	}
	if cases == nil {
		cases = []*models.Case{}
	}
	return cases, nil
}

// Statistics counts scoped cases per status plus the high-priority total.
// Each figure is an independent query, so the totals may straddle concurrent writes.
func (s *Service) Statistics(ctx context.Context, scope models.Scope) (result *models.Statistics, err error) {
	ctx, span := startSpan(ctx, "cases.statistics", scope)
	defer func() { endSpan(span, err) }()
	defer s.observe("statistics", time.Now())

	if err := scope.Validate(); err != nil {
		return nil, err
	}

	statuses := models.AllStatuses()
	byStatus := make([]int64, len(statuses))
	var total, high int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.cases.Count(gctx, scope, models.ListFilter{})
		total = n
		return err
	})
	g.Go(func() error {
		n, err := s.cases.Count(gctx, scope, models.ListFilter{HighPriorityOnly: true})
		high = n
		return err
	})
	for i, status := range statuses {
		g.Go(func() error {
			n, err := s.cases.Count(gctx, scope, models.ListFilter{Status: &status})
			byStatus[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, translate(err, "count cases")
	}

	stats := &models.Statistics{
		Total:        total,
		ByStatus:     make(map[models.Status]int64, len(statuses)),
		HighPriority: high,
	}
	for i, status := range statuses {
		stats.ByStatus[status] = byStatus[i]
	}
	return stats, nil
}

// History returns the case's audit trail in occurrence order. It applies the
// same visibility rules as FindByID.
func (s *Service) History(ctx context.Context, scope models.Scope, caseID id.CaseID) (result []models.AuditEntry, err error) {
	ctx, span := startSpan(ctx, "cases.history", scope, attribute.String("case_id", caseID.String()))
	defer func() { endSpan(span, err) }()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.cases.FindByID(ctx, scope, caseID); err != nil {
		return nil, translate(err, "load case")
	}
	if s.history == nil {
		return []models.AuditEntry{}, nil
	}
	entries, err := s.history.ListByCase(ctx, scope, caseID)
	if err != nil {
		return nil, translate(err, "load case history")
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return entries, nil
}
