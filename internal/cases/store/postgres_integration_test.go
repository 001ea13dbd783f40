//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"caseflow/internal/cases/models"
	"caseflow/internal/cases/store"
	id "caseflow/pkg/domain"
	"caseflow/pkg/platform/sentinel"
	"caseflow/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	scope    models.Scope
	base     time.Time
	seq      int
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "cases", "case_audit_log"))
	s.scope = models.Scope{TenantID: "T1", CellID: "C1"}
	s.base = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	s.seq = 0
}

func (s *PostgresStoreSuite) newCase(scope models.Scope, mutate func(c *models.Case)) *models.Case {
	s.seq++
	created := s.base.Add(time.Duration(s.seq) * time.Hour)
	c := &models.Case{
		ID:         id.NewCaseID(),
		CaseNumber: fmt.Sprintf("FRD-202403-%06d-P120", s.seq),
		Title:      fmt.Sprintf("Case %d", s.seq),
		CaseType:   models.CaseTypeFraud,
		Priority:   models.PriorityMedium,
		Status:     models.StatusOpen,
		CreatedBy:  models.UserRef{ID: id.UserID(uuid.New())},
		CreatedAt:  created,
		UpdatedAt:  created,
		Version:    1,
		TenantID:   scope.TenantID,
		CellID:     scope.CellID,
	}
	if mutate != nil {
		mutate(c)
	}
	s.Require().NoError(s.store.Create(context.Background(), c))
	return c
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	assignee := id.UserID(uuid.New())
	closedAt := s.base.Add(5 * time.Hour)
	c := s.newCase(s.scope, func(c *models.Case) {
		c.Description = "desc"
		c.AssignedTo = &models.UserRef{ID: assignee}
		c.ClosedAt = &closedAt
		c.Status = models.StatusClosed
		c.Metadata = map[string]any{"source": "rules-engine", "score": 0.93}
		c.Tags = []string{"card", "atm"}
	})

	found, err := s.store.FindByID(ctx, s.scope, c.ID)
	s.Require().NoError(err)
	s.Equal(c.CaseNumber, found.CaseNumber)
	s.Equal(c.CreatedBy, found.CreatedBy)
	s.Equal(assignee, found.AssignedTo.ID)
	s.Require().NotNil(found.ClosedAt)
	s.True(closedAt.Equal(*found.ClosedAt))
	s.Equal("rules-engine", found.Metadata["source"])
	s.ElementsMatch([]string{"card", "atm"}, found.Tags)

	byNumber, err := s.store.FindByCaseNumber(ctx, s.scope, c.CaseNumber)
	s.Require().NoError(err)
	s.Equal(c.ID, byNumber.ID)

	_, err = s.store.FindByID(ctx, models.Scope{TenantID: "T2", CellID: "C1"}, c.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateNumberConflicts() {
	c := s.newCase(s.scope, nil)
	dup := c.Clone()
	dup.ID = id.NewCaseID()
	s.ErrorIs(s.store.Create(context.Background(), dup), sentinel.ErrConflict)
}

// TestConcurrentConditionalWrites verifies that only one writer wins a version.
func (s *PostgresStoreSuite) TestConcurrentConditionalWrites() {
	ctx := context.Background()
	c := s.newCase(s.scope, nil)
	const writers = 20

	var wg sync.WaitGroup
	var wins, conflicts atomic.Int32
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := c.Clone()
			next.Title = fmt.Sprintf("writer %d", i)
			next.Version = 2
			err := s.store.UpdateIfVersion(ctx, next, 1)
			if err == nil {
				wins.Add(1)
			} else if err == sentinel.ErrConflict {
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(writers-1), conflicts.Load())

	found, err := s.store.FindByID(ctx, s.scope, c.ID)
	s.Require().NoError(err)
	s.Equal(int64(2), found.Version)
}

func (s *PostgresStoreSuite) TestUpdateMissingCase() {
	c := s.newCase(s.scope, nil)
	missing := c.Clone()
	missing.ID = id.NewCaseID()
	s.ErrorIs(s.store.UpdateIfVersion(context.Background(), missing, 1), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()
	open := s.newCase(s.scope, func(c *models.Case) { c.Title = "Wire 100% match" })
	high := s.newCase(s.scope, func(c *models.Case) {
		c.Priority = models.PriorityCritical
		c.Status = models.StatusInProgress
		c.Tags = []string{"wire"}
	})
	s.newCase(s.scope, func(c *models.Case) { c.Status = models.StatusArchived })
	s.newCase(models.Scope{TenantID: "T1", CellID: "C2"}, nil)

	all, err := s.store.List(ctx, s.scope, models.ListFilter{}, 0, 10)
	s.Require().NoError(err)
	s.Len(all, 3)
	s.True(all[0].CreatedAt.After(all[1].CreatedAt))

	active, err := s.store.List(ctx, s.scope, models.ListFilter{ActiveOnly: true}, 0, 10)
	s.Require().NoError(err)
	s.Len(active, 2)

	hp, err := s.store.List(ctx, s.scope, models.ListFilter{HighPriorityOnly: true, Tag: "wire"}, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(hp, 1)
	s.Equal(high.ID, hp[0].ID)

	literal, err := s.store.List(ctx, s.scope, models.ListFilter{Search: "100%"}, 0, 10)
	s.Require().NoError(err)
	s.Require().Len(literal, 1)
	s.Equal(open.ID, literal[0].ID)

	n, err := s.store.Count(ctx, s.scope, models.ListFilter{})
	s.Require().NoError(err)
	s.Equal(int64(3), n)
}

func (s *PostgresStoreSuite) TestOverdue() {
	ctx := context.Background()
	older := s.newCase(s.scope, func(c *models.Case) { c.Status = models.StatusInProgress })
	s.newCase(s.scope, func(c *models.Case) {
		c.Status = models.StatusInProgress
		c.CreatedAt = s.base.Add(72 * time.Hour)
	})

	out, err := s.store.Overdue(ctx, s.scope, s.base.Add(24*time.Hour), 10)
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal(older.ID, out[0].ID)
}
