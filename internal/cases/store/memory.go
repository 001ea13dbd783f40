package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
)

// InMemory is a process-local case registry. The mutex guards the maps only;
// cases are cloned on the way in and out so callers never share state.
type InMemory struct {
	mu       sync.RWMutex
	cases    map[id.CaseID]*models.Case
	byNumber map[numberKey]id.CaseID
}

type numberKey struct {
	tenantID string
	number   string
}

func NewInMemory() *InMemory {
	return &InMemory{
		cases:    make(map[id.CaseID]*models.Case),
		byNumber: make(map[numberKey]id.CaseID),
	}
}

// Create inserts c. A reused ID or case number is reported as ErrConflict.
func (s *InMemory) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := numberKey{tenantID: c.TenantID, number: c.CaseNumber}
	if _, ok := s.cases[c.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byNumber[key]; ok {
		return sentinel.ErrConflict
	}
	s.cases[c.ID] = c.Clone()
	s.byNumber[key] = c.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, scope models.Scope, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cases[caseID]
	if !ok || !scope.Owns(c) {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemory) FindByCaseNumber(_ context.Context, scope models.Scope, number string) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	caseID, ok := s.byNumber[numberKey{tenantID: scope.TenantID, number: number}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := s.cases[caseID]
	if !scope.Owns(c) {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

// UpdateIfVersion replaces the stored case only while its version still
// equals expectedVersion.
func (s *InMemory) UpdateIfVersion(_ context.Context, c *models.Case, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.cases[c.ID]
	if !ok || current.TenantID != c.TenantID || current.CellID != c.CellID {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	s.cases[c.ID] = c.Clone()
	return nil
}

func (s *InMemory) List(_ context.Context, scope models.Scope, filter models.ListFilter, offset, limit int) ([]*models.Case, error) {
	matched := s.matching(scope, filter.Matches)
	sortNewestFirst(matched)
	return page(matched, offset, limit), nil
}

func (s *InMemory) Count(_ context.Context, scope models.Scope, filter models.ListFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, c := range s.cases {
		if scope.Owns(c) && filter.Matches(c) {
			n++
		}
	}
	return n, nil
}

// Overdue returns IN_PROGRESS cases created before cutoff, oldest first.
func (s *InMemory) Overdue(_ context.Context, scope models.Scope, cutoff time.Time, limit int) ([]*models.Case, error) {
	matched := s.matching(scope, func(c *models.Case) bool {
		return c.Status == models.StatusInProgress && c.CreatedAt.Before(cutoff)
	})
	slices.SortFunc(matched, func(a, b *models.Case) int {
		if cmp := a.CreatedAt.Compare(b.CreatedAt); cmp != 0 {
			return cmp
		}
		return compareIDs(a.ID, b.ID)
	})
	return page(matched, 0, limit), nil
}

func (s *InMemory) matching(scope models.Scope, keep func(*models.Case) bool) []*models.Case {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Case
	for _, c := range s.cases {
		if scope.Owns(c) && keep(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}

func sortNewestFirst(cases []*models.Case) {
	slices.SortFunc(cases, func(a, b *models.Case) int {
		if cmp := b.CreatedAt.Compare(a.CreatedAt); cmp != 0 {
			return cmp
		}
		return compareIDs(a.ID, b.ID)
	})
}

func compareIDs(a, b id.CaseID) int {
	switch as, bs := a.String(), b.String(); {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func page(cases []*models.Case, offset, limit int) []*models.Case {
	if offset >= len(cases) {
		return []*models.Case{}
	}
	end := len(cases)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return cases[offset:end]
}
