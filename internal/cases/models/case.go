package models

import (
	"maps"
	"slices"
	"strings"
	"time"

	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	pstrings "caseflow/pkg/platform/strings"
)

const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 5000
)

// UserRef is the serialized form of a user reference on a case.
type UserRef struct {
	ID id.UserID `json:"id"`
}

// Case is the aggregate root for an investigation.
//
// Invariants:
//   - ID, CaseNumber, CaseType, CreatedBy, CreatedAt, TenantID and CellID never change
//   - Version starts at 1 and grows by exactly one per successful mutation
//   - ClosedAt is written once, on the transition to CLOSED; archiving keeps it
//   - Tags behave as a set: trimmed, no empties, no duplicates
//   - Cases are never physically removed; delete means ARCHIVED
type Case struct {
	ID          id.CaseID      `json:"id"`
	CaseNumber  string         `json:"case_number"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	CaseType    CaseType       `json:"case_type"`
	Priority    Priority       `json:"priority"`
	Status      Status         `json:"status"`
	AssignedTo  *UserRef       `json:"assigned_to,omitempty"`
	CreatedBy   UserRef        `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Version     int64          `json:"version"`
	TenantID    string         `json:"tenant_id"`
	CellID      string         `json:"cell_id"`
}

// NewCase builds an OPEN case at version 1. The case number must already be allocated.
func NewCase(caseID id.CaseID, number string, req CreateCaseRequest, scope Scope, createdBy id.UserID, now time.Time) (*Case, error) {
	if caseID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "case id is required")
	}
	if number == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "case number is required")
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if createdBy.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creator is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	priority := req.Priority
	if priority == "" {
		priority = DefaultPriority
	}
	return &Case{
		ID:          caseID,
		CaseNumber:  number,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CaseType:    req.CaseType,
		Priority:    priority,
		Status:      StatusOpen,
		CreatedBy:   UserRef{ID: createdBy},
		CreatedAt:   now,
		UpdatedAt:   now,
		Metadata:    maps.Clone(req.Metadata),
		Tags:        NormalizeTags(req.Tags),
		Version:     1,
		TenantID:    scope.TenantID,
		CellID:      scope.CellID,
	}, nil
}

// NormalizeTags applies set semantics to tags. A nil input stays nil.
func NormalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	return pstrings.DedupeAndTrim(tags)
}

// Clone returns a copy that shares no mutable state with c.
// Metadata values are copied one level deep.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	cp := *c
	if c.AssignedTo != nil {
		ref := *c.AssignedTo
		cp.AssignedTo = &ref
	}
	if c.ClosedAt != nil {
		t := *c.ClosedAt
		cp.ClosedAt = &t
	}
	cp.Metadata = maps.Clone(c.Metadata)
	cp.Tags = slices.Clone(c.Tags)
	return &cp
}

func (c *Case) IsActive() bool { return c.Status.IsActive() }
func (c *Case) IsFinal() bool  { return c.Status.IsFinal() }

// HasTag reports whether tag is one of the case's tags.
func (c *Case) HasTag(tag string) bool {
	return slices.Contains(c.Tags, strings.TrimSpace(tag))
}

// AssigneeID returns the assignee, or nil when unassigned.
func (c *Case) AssigneeID() *id.UserID {
	if c.AssignedTo == nil {
		return nil
	}
	uid := c.AssignedTo.ID
	return &uid
}

func (c *Case) invalidState(action string) error {
	return dErrors.Newf(dErrors.CodeInvalidState, "cannot %s case in status %s", action, c.Status)
}

// CanUpdate rejects edits to final cases.
func (c *Case) CanUpdate() error {
	if c.Status.IsFinal() {
		return c.invalidState("update")
	}
	return nil
}

// ApplyUpdate patches the editable fields. Nil fields are left unchanged.
// Call CanUpdate and UpdateCaseRequest.Validate first.
func (c *Case) ApplyUpdate(req UpdateCaseRequest, now time.Time) {
	if req.Title != nil {
		c.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Priority != nil {
		c.Priority = *req.Priority
	}
	if req.Tags != nil {
		c.Tags = NormalizeTags(*req.Tags)
	}
	if req.Metadata != nil {
		c.Metadata = maps.Clone(*req.Metadata)
	}
	c.UpdatedAt = now
}

// CanAssign rejects assignment of final cases. Re-assignment of an active case
// is allowed and keeps its status, except OPEN which moves to IN_PROGRESS.
func (c *Case) CanAssign() error {
	if c.Status.IsFinal() {
		return c.invalidState("assign")
	}
	return nil
}

// ApplyAssignment sets the assignee and returns the previous one (nil if none).
func (c *Case) ApplyAssignment(assignee id.UserID, now time.Time) *id.UserID {
	previous := c.AssigneeID()
	c.AssignedTo = &UserRef{ID: assignee}
	if c.Status == StatusOpen {
		c.Status = StatusInProgress
	}
	c.UpdatedAt = now
	return previous
}

// CanClose allows closing from any non-final status. A closed case cannot be closed again.
func (c *Case) CanClose() error {
	if !c.Status.CanTransitionTo(StatusClosed) {
		return c.invalidState("close")
	}
	return nil
}

// ApplyClose moves the case to CLOSED and stamps ClosedAt.
func (c *Case) ApplyClose(now time.Time) {
	c.Status = StatusClosed
	closedAt := now
	c.ClosedAt = &closedAt
	c.UpdatedAt = now
}

// CanEscalate allows escalation from any non-final status, including re-escalation.
func (c *Case) CanEscalate() error {
	if !c.Status.CanTransitionTo(StatusEscalated) {
		return c.invalidState("escalate")
	}
	return nil
}

// ApplyEscalation moves the case to ESCALATED and raises priority to at least HIGH.
// It returns the priority held before the call.
func (c *Case) ApplyEscalation(now time.Time) Priority {
	previous := c.Priority
	c.Status = StatusEscalated
	if c.Priority.IsLowerThan(PriorityHigh) {
		c.Priority = PriorityHigh
	}
	c.UpdatedAt = now
	return previous
}

// CanSubmitForReview allows IN_PROGRESS and ESCALATED cases to move to PENDING_REVIEW.
func (c *Case) CanSubmitForReview() error {
	if !c.Status.CanTransitionTo(StatusPendingReview) {
		return c.invalidState("submit for review")
	}
	return nil
}

func (c *Case) ApplySubmitForReview(now time.Time) {
	c.Status = StatusPendingReview
	c.UpdatedAt = now
}

// CanArchive allows archiving from every status except ARCHIVED.
func (c *Case) CanArchive() error {
	if !c.Status.CanTransitionTo(StatusArchived) {
		return c.invalidState("archive")
	}
	return nil
}

// ApplyArchive moves the case to ARCHIVED. ClosedAt is left as is.
func (c *Case) ApplyArchive(now time.Time) {
	c.Status = StatusArchived
	c.UpdatedAt = now
}
