package audit

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"caseflow/internal/cases/models"
	id "caseflow/pkg/domain"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	seen    map[id.EventID]struct{}
	entries map[id.CaseID][]models.AuditEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		seen:    make(map[id.EventID]struct{}),
		entries: make(map[id.CaseID][]models.AuditEntry),
	}
}

func (s *InMemoryStore) Append(_ context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[entry.EventID]; ok {
		return nil
	}
	s.seen[entry.EventID] = struct{}{}
	s.entries[entry.CaseID] = append(s.entries[entry.CaseID], entry)
	return nil
}

// ListByCase returns the case's entries in version order.
func (s *InMemoryStore) ListByCase(_ context.Context, scope models.Scope, caseID id.CaseID) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AuditEntry, 0, len(s.entries[caseID]))
	for _, e := range s.entries[caseID] {
		if e.TenantID == scope.TenantID && e.CellID == scope.CellID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b models.AuditEntry) int {
		if c := cmp.Compare(a.CaseVersion, b.CaseVersion); c != 0 {
			return c
		}
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out, nil
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[id.EventID]struct{})
	s.entries = make(map[id.CaseID][]models.AuditEntry)
}
