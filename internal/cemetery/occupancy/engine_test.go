package occupancy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type graveRepoMock struct {
	domain.GraveRepository
	mock.Mock
}

func (m *graveRepoMock) FindForUpdate(ctx context.Context, db *gorm.DB, parishID, id string) (*domain.Grave, error) {
	args := m.Called(parishID, id)
	grave, _ := args.Get(0).(*domain.Grave)
	return grave, args.Error(1)
}

func (m *graveRepoMock) UpdateStatus(ctx context.Context, db *gorm.DB, grave *domain.Grave) error {
	args := m.Called(grave.ID, grave.Status)
	return args.Error(0)
}

type concessionRepoMock struct {
	domain.ConcessionRepository
	mock.Mock
}

func (m *concessionRepoMock) HasActiveForGrave(ctx context.Context, db *gorm.DB, parishID, graveID, excludeID string) (bool, error) {
	args := m.Called(parishID, graveID)
	return args.Bool(0), args.Error(1)
}

type burialRepoMock struct {
	domain.BurialRepository
	mock.Mock
}

func (m *burialRepoMock) CountForGrave(ctx context.Context, db *gorm.DB, parishID, graveID string) (int64, error) {
	args := m.Called(parishID, graveID)
	return args.Get(0).(int64), args.Error(1)
}

type engineFixture struct {
	engine      *Engine
	graves      *graveRepoMock
	concessions *concessionRepoMock
	burials     *burialRepoMock
}

func newEngineFixture(t *testing.T) *engineFixture {
	f := &engineFixture{
		graves:      &graveRepoMock{},
		concessions: &concessionRepoMock{},
		burials:     &burialRepoMock{},
	}
	f.engine = NewEngine(Params{
		Log:         zap.NewNop(),
		Clock:       clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		Graves:      f.graves,
		Concessions: f.concessions,
		Burials:     f.burials,
	})
	t.Cleanup(func() {
		f.graves.AssertExpectations(t)
		f.concessions.AssertExpectations(t)
		f.burials.AssertExpectations(t)
	})
	return f
}

const (
	testParish = "6f1c2a58-3a70-4c4e-9d2b-3c1b8f0e2a11"
	testGrave  = "0b6a4f4e-9b7d-4a8e-8f44-1f1d3f7e6c22"
)

func TestRecomputeBurialWinsWithoutCheckingConcessions(t *testing.T) {
	f := newEngineFixture(t)
	f.graves.On("FindForUpdate", testParish, testGrave).
		Return(&domain.Grave{ID: testGrave, Status: domain.GraveStatusReserved}, nil)
	f.burials.On("CountForGrave", testParish, testGrave).Return(int64(1), nil)
	f.graves.On("UpdateStatus", testGrave, domain.GraveStatusOccupied).Return(nil)

	outcome, err := f.engine.Recompute(context.Background(), nil, testParish, testGrave, CauseBurialCreated)
	require.NoError(t, err)
	assert.Equal(t, Outcome{
		GraveID:  testGrave,
		Previous: domain.GraveStatusReserved,
		Status:   domain.GraveStatusOccupied,
		Changed:  true,
	}, outcome)
	f.concessions.AssertNotCalled(t, "HasActiveForGrave", mock.Anything, mock.Anything)
}

func TestRecomputeFallsBackToReservation(t *testing.T) {
	f := newEngineFixture(t)
	f.graves.On("FindForUpdate", testParish, testGrave).
		Return(&domain.Grave{ID: testGrave, Status: domain.GraveStatusOccupied}, nil)
	f.burials.On("CountForGrave", testParish, testGrave).Return(int64(0), nil)
	f.concessions.On("HasActiveForGrave", testParish, testGrave).Return(true, nil)
	f.graves.On("UpdateStatus", testGrave, domain.GraveStatusReserved).Return(nil)

	outcome, err := f.engine.Recompute(context.Background(), nil, testParish, testGrave, CauseBurialDeleted)
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, domain.GraveStatusReserved, outcome.Status)
}

func TestRecomputeSkipsWriteWhenUnchanged(t *testing.T) {
	f := newEngineFixture(t)
	f.graves.On("FindForUpdate", testParish, testGrave).
		Return(&domain.Grave{ID: testGrave, Status: domain.GraveStatusFree}, nil)
	f.burials.On("CountForGrave", testParish, testGrave).Return(int64(0), nil)
	f.concessions.On("HasActiveForGrave", testParish, testGrave).Return(false, nil)

	outcome, err := f.engine.Recompute(context.Background(), nil, testParish, testGrave, CauseConcessionDeleted)
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, domain.GraveStatusFree, outcome.Status)
	f.graves.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestRecomputeLeavesMaintenanceAlone(t *testing.T) {
	f := newEngineFixture(t)
	f.graves.On("FindForUpdate", testParish, testGrave).
		Return(&domain.Grave{ID: testGrave, Status: domain.GraveStatusMaintenance}, nil)

	outcome, err := f.engine.Recompute(context.Background(), nil, testParish, testGrave, CauseBurialCreated)
	require.NoError(t, err)
	assert.True(t, outcome.Skipped)
	assert.Equal(t, domain.GraveStatusMaintenance, outcome.Status)
	f.burials.AssertNotCalled(t, "CountForGrave", mock.Anything, mock.Anything)
}

func TestRecomputeClearsMaintenance(t *testing.T) {
	f := newEngineFixture(t)
	f.graves.On("FindForUpdate", testParish, testGrave).
		Return(&domain.Grave{ID: testGrave, Status: domain.GraveStatusMaintenance}, nil)
	f.burials.On("CountForGrave", testParish, testGrave).Return(int64(0), nil)
	f.concessions.On("HasActiveForGrave", testParish, testGrave).Return(false, nil)
	f.graves.On("UpdateStatus", testGrave, domain.GraveStatusFree).Return(nil)

	outcome, err := f.engine.Recompute(context.Background(), nil, testParish, testGrave, CauseMaintenanceCleared)
	require.NoError(t, err)
	assert.False(t, outcome.Skipped)
	assert.Equal(t, domain.GraveStatusFree, outcome.Status)
}

func TestRecomputeMissingGrave(t *testing.T) {
	f := newEngineFixture(t)
	f.graves.On("FindForUpdate", testParish, testGrave).Return(nil, nil)

	_, err := f.engine.Recompute(context.Background(), nil, testParish, testGrave, CauseBurialCreated)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecomputePropagatesStoreErrors(t *testing.T) {
	f := newEngineFixture(t)
	boom := errors.New("connection reset")
	f.graves.On("FindForUpdate", testParish, testGrave).
		Return(&domain.Grave{ID: testGrave, Status: domain.GraveStatusFree}, nil)
	f.burials.On("CountForGrave", testParish, testGrave).Return(int64(0), boom)

	_, err := f.engine.Recompute(context.Background(), nil, testParish, testGrave, CauseBurialCreated)
	assert.ErrorIs(t, err, boom)
}
