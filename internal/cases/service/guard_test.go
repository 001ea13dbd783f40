package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"caseflow/internal/cases/events"
	"caseflow/internal/cases/models"
	"caseflow/internal/cases/service/mocks"
	id "caseflow/pkg/domain"
	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/platform/sentinel"
)

var testScope = models.Scope{TenantID: "T1", CellID: "C1"}

func storedCase(status models.Status, version int64) *models.Case {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return &models.Case{
		ID:         id.NewCaseID(),
		CaseNumber: "FRD-202406-000001-P120",
		Title:      "Stored",
		CaseType:   models.CaseTypeFraud,
		Priority:   models.PriorityMedium,
		Status:     status,
		CreatedBy:  models.UserRef{ID: id.UserID(uuid.New())},
		CreatedAt:  created,
		UpdatedAt:  created,
		Version:    version,
		TenantID:   testScope.TenantID,
		CellID:     testScope.CellID,
	}
}

func newMockedService(t *testing.T) (*Service, *mocks.MockCaseStore, *mocks.MockNumberAllocator, *events.InMemoryEmitter) {
	ctrl := gomock.NewController(t)
	cases := mocks.NewMockCaseStore(ctrl)
	numbers := mocks.NewMockNumberAllocator(ctrl)
	emitter := events.NewRecordingEmitter()
	svc := New(cases, numbers,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithEmitter(emitter),
	)
	return svc, cases, numbers, emitter
}

func TestGuard_LostRaceIsConflict(t *testing.T) {
	svc, cases, _, emitter := newMockedService(t)
	current := storedCase(models.StatusInProgress, 4)

	cases.EXPECT().FindByID(gomock.Any(), testScope, current.ID).Return(current, nil)
	cases.EXPECT().UpdateIfVersion(gomock.Any(), gomock.Any(), int64(4)).
		DoAndReturn(func(_ context.Context, c *models.Case, _ int64) error {
			assert.Equal(t, int64(5), c.Version)
			return sentinel.ErrConflict
		})

	title := "mine"
	_, err := svc.Update(context.Background(), testScope, current.ID, models.UpdateCaseRequest{Title: &title})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, int64(4), current.Version, "stored snapshot must not be mutated")
	assert.Equal(t, "Stored", current.Title)
	assert.Empty(t, emitter.Events())
}

func TestGuard_StoreErrors(t *testing.T) {
	t.Run("read failure is unavailable", func(t *testing.T) {
		svc, cases, _, _ := newMockedService(t)
		caseID := id.NewCaseID()
		cases.EXPECT().FindByID(gomock.Any(), testScope, caseID).Return(nil, errors.New("connection reset"))

		_, err := svc.Close(context.Background(), testScope, caseID, models.TransitionRequest{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	t.Run("missing case is not found", func(t *testing.T) {
		svc, cases, _, _ := newMockedService(t)
		caseID := id.NewCaseID()
		cases.EXPECT().FindByID(gomock.Any(), testScope, caseID).Return(nil, sentinel.ErrNotFound)

		_, err := svc.Escalate(context.Background(), testScope, caseID, models.TransitionRequest{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("write failure is unavailable", func(t *testing.T) {
		svc, cases, _, emitter := newMockedService(t)
		current := storedCase(models.StatusOpen, 1)
		cases.EXPECT().FindByID(gomock.Any(), testScope, current.ID).Return(current, nil)
		cases.EXPECT().UpdateIfVersion(gomock.Any(), gomock.Any(), int64(1)).Return(errors.New("disk full"))

		_, err := svc.Archive(context.Background(), testScope, current.ID, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
		assert.Empty(t, emitter.Events())
	})

	t.Run("invalid transition never writes", func(t *testing.T) {
		svc, cases, _, _ := newMockedService(t)
		current := storedCase(models.StatusArchived, 6)
		cases.EXPECT().FindByID(gomock.Any(), testScope, current.ID).Return(current, nil)

		_, err := svc.Archive(context.Background(), testScope, current.ID, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func TestCreate_AllocationFailure(t *testing.T) {
	svc, _, numbers, emitter := newMockedService(t)
	numbers.EXPECT().Next(gomock.Any(), models.CaseTypeSanctions, "T1", gomock.Any()).
		Return("", dErrors.New(dErrors.CodeAllocationFailure, "failed to allocate case number"))

	_, err := svc.Create(context.Background(), testScope, id.UserID(uuid.New()), models.CreateCaseRequest{
		Title:    "Screening hit",
		CaseType: models.CaseTypeSanctions,
	})

	assert.True(t, dErrors.HasCode(err, dErrors.CodeAllocationFailure))
	assert.Empty(t, emitter.Events())
}

func TestCreate_ValidationSkipsAllocation(t *testing.T) {
	svc, _, _, _ := newMockedService(t)

	_, err := svc.Create(context.Background(), testScope, id.UserID(uuid.New()), models.CreateCaseRequest{CaseType: models.CaseTypeKYC})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = svc.Create(context.Background(), testScope, id.UserID{}, models.CreateCaseRequest{Title: "x", CaseType: models.CaseTypeKYC})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestStatistics_CountFailure(t *testing.T) {
	svc, cases, _, _ := newMockedService(t)
	cases.EXPECT().Count(gomock.Any(), testScope, gomock.Any()).Return(int64(0), errors.New("timeout")).AnyTimes()

	_, err := svc.Statistics(context.Background(), testScope)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestHistory_WithoutReader(t *testing.T) {
	svc, cases, _, _ := newMockedService(t)
	current := storedCase(models.StatusOpen, 1)
	cases.EXPECT().FindByID(gomock.Any(), testScope, current.ID).Return(current, nil)

	entries, err := svc.History(context.Background(), testScope, current.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistory_ReaderFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	cases := mocks.NewMockCaseStore(ctrl)
	history := mocks.NewMockHistoryReader(ctrl)
	svc := New(cases, mocks.NewMockNumberAllocator(ctrl), WithHistory(history))
	current := storedCase(models.StatusOpen, 1)

	cases.EXPECT().FindByID(gomock.Any(), testScope, current.ID).Return(current, nil)
	history.EXPECT().ListByCase(gomock.Any(), testScope, current.ID).Return(nil, errors.New("relation does not exist"))

	_, err := svc.History(context.Background(), testScope, current.ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}
