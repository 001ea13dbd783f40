package models

import (
	"strings"
	"time"

	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListFilter selects cases within a scope. All set criteria are ANDed.
// Results are ordered by CreatedAt descending, then ID.
type ListFilter struct {
	Status           *Status
	CaseType         *CaseType
	Priority         *Priority
	AssignedTo       *id.UserID
	CreatedBy        *id.UserID
	Tag              string
	Search           string
	ActiveOnly       bool
	HighPriorityOnly bool
	CreatedFrom      *time.Time
	CreatedTo        *time.Time

	// Page is zero-based.
	Page int
	Size int
}

// Normalize applies paging defaults and trims text criteria.
func (f *ListFilter) Normalize() error {
	if f.Page < 0 {
		return dErrors.New(dErrors.CodeValidation, "page must not be negative")
	}
	if f.Size < 0 {
		return dErrors.New(dErrors.CodeValidation, "size must not be negative")
	}
	if f.Size == 0 {
		f.Size = DefaultPageSize
	}
	if f.Size > MaxPageSize {
		f.Size = MaxPageSize
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedTo.Before(*f.CreatedFrom) {
		return dErrors.New(dErrors.CodeValidation, "created_to must not be before created_from")
	}
	f.Tag = strings.TrimSpace(f.Tag)
	f.Search = strings.TrimSpace(f.Search)
	return nil
}

func (f ListFilter) Offset() int { return f.Page * f.Size }

// Matches evaluates the filter against one case. Stores without a query
// language use it directly.
func (f ListFilter) Matches(c *Case) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.CaseType != nil && c.CaseType != *f.CaseType {
		return false
	}
	if f.Priority != nil && c.Priority != *f.Priority {
		return false
	}
	if f.AssignedTo != nil && (c.AssignedTo == nil || c.AssignedTo.ID != *f.AssignedTo) {
		return false
	}
	if f.CreatedBy != nil && c.CreatedBy.ID != *f.CreatedBy {
		return false
	}
	if f.Tag != "" && !c.HasTag(f.Tag) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Title), needle) &&
			!strings.Contains(strings.ToLower(c.Description), needle) {
			return false
		}
	}
	if f.ActiveOnly && !c.Status.IsActive() {
		return false
	}
	if f.HighPriorityOnly && !c.Priority.IsHigh() {
		return false
	}
	if f.CreatedFrom != nil && c.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && c.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

// CasePage is one page of a listing. HasMore is true when a following page
// has at least one case.
type CasePage struct {
	Cases   []*Case `json:"cases"`
	Page    int     `json:"page"`
	Size    int     `json:"size"`
	HasMore bool    `json:"has_more"`
}
