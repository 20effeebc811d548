package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	auditrepo "github.com/smallbiznis/ecclesia/internal/audit/repository"
	auditservice "github.com/smallbiznis/ecclesia/internal/audit/service"
	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/cemetery/occupancy"
	"github.com/smallbiznis/ecclesia/internal/cemetery/repository"
	"github.com/smallbiznis/ecclesia/internal/cemetery/validation"
	clientdomain "github.com/smallbiznis/ecclesia/internal/client/domain"
	clientrepo "github.com/smallbiznis/ecclesia/internal/client/repository"
	"github.com/smallbiznis/ecclesia/internal/clock"
	"github.com/smallbiznis/ecclesia/internal/config"
	ledgerdomain "github.com/smallbiznis/ecclesia/internal/ledger/domain"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
	"github.com/smallbiznis/ecclesia/pkg/calendar"
	pkgdb "github.com/smallbiznis/ecclesia/pkg/db"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ledgerMock struct {
	mock.Mock
}

func (m *ledgerMock) CreateEntry(ctx context.Context, req ledgerdomain.CreateEntryRequest) (ledgerdomain.CreateEntryResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ledgerdomain.CreateEntryResult), args.Error(1)
}

func (m *ledgerMock) PostConcessionPayment(ctx context.Context, posting ledgerdomain.PaymentPosting) (ledgerdomain.CreateEntryResult, error) {
	args := m.Called(ctx, posting)
	return args.Get(0).(ledgerdomain.CreateEntryResult), args.Error(1)
}

func (m *ledgerMock) ListLines(ctx context.Context, parishID string, sourceType ledgerdomain.LedgerSourceType, sourceID string) ([]ledgerdomain.LedgerEntryLine, error) {
	args := m.Called(ctx, parishID, sourceType, sourceID)
	return args.Get(0).([]ledgerdomain.LedgerEntryLine), args.Error(1)
}

type fixture struct {
	t        *testing.T
	svc      *Service
	db       *gorm.DB
	clock    *clock.FakeClock
	queries  *pkgdb.QueryCounter
	ledger   *ledgerMock
	ctx      context.Context
	parishID string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Cemetery{},
		&domain.Parcel{},
		&domain.Row{},
		&domain.Grave{},
		&domain.Concession{},
		&domain.Burial{},
		&domain.ConcessionPayment{},
		&clientdomain.Client{},
		&auditdomain.AuditLog{},
	))
	queries := pkgdb.NewQueryCounter()
	require.NoError(t, db.Use(queries))

	fake := clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	graves := repository.ProvideGraves()
	concessions := repository.ProvideConcessions()
	burials := repository.ProvideBurials()
	ledger := &ledgerMock{}
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepo.Provide(),
	})

	policy := config.DefaultCemeteryPolicy()
	policy.PostToLedger = false

	svc := NewService(Params{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     fake,
		Validator: validation.New(),
		Engine: occupancy.NewEngine(occupancy.Params{
			Log:         zap.NewNop(),
			Clock:       fake,
			Graves:      graves,
			Concessions: concessions,
			Burials:     burials,
		}),
		Policy:      config.NewStaticPolicyHolder(policy),
		Layout:      repository.ProvideLayout(),
		Graves:      graves,
		Concessions: concessions,
		Burials:     burials,
		Payments:    repository.ProvidePayments(),
		Occupancy:   repository.ProvideOccupancy(),
		References:  clientrepo.Provide(),
		Ledger:      ledger,
		Audit:       audit,
	})

	parishID := uuid.NewString()
	return &fixture{
		t:        t,
		svc:      svc,
		db:       db,
		clock:    fake,
		queries:  queries,
		ledger:   ledger,
		ctx:      orgcontext.WithActor(orgcontext.WithParishID(context.Background(), parishID), "user:test"),
		parishID: parishID,
	}
}

func (f *fixture) cemetery(name string) domain.Cemetery {
	f.t.Helper()
	c, err := f.svc.CreateCemetery(f.ctx, domain.CreateCemeteryRequest{Name: name})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) parcel(cemeteryID, name string) domain.Parcel {
	f.t.Helper()
	p, err := f.svc.CreateParcel(f.ctx, domain.CreateParcelRequest{CemeteryID: cemeteryID, Name: name})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) row(parcelID, name string) domain.Row {
	f.t.Helper()
	r, err := f.svc.CreateRow(f.ctx, domain.CreateRowRequest{ParcelID: parcelID, Name: name})
	require.NoError(f.t, err)
	return r
}

func (f *fixture) grave(cemeteryID, code string) domain.Grave {
	f.t.Helper()
	g, err := f.svc.CreateGrave(f.ctx, domain.CreateGraveRequest{CemeteryID: cemeteryID, Code: code})
	require.NoError(f.t, err)
	return g
}

func (f *fixture) client(name string) string {
	f.t.Helper()
	now := f.clock.Now()
	c := clientdomain.Client{
		ID:        uuid.NewString(),
		ParishID:  f.parishID,
		Name:      name,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(f.t, clientrepo.Provide().Insert(f.ctx, f.db, &c))
	return c.ID
}

func (f *fixture) concession(graveID, contract, start, expiry string) domain.Concession {
	f.t.Helper()
	c, err := f.svc.CreateConcession(f.ctx, domain.CreateConcessionRequest{
		GraveID:        graveID,
		ContractNumber: contract,
		StartDate:      start,
		ExpiryDate:     expiry,
		AnnualFee:      "120.00",
	})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) burial(graveID, lastName, burialDate string) domain.Burial {
	f.t.Helper()
	b, err := f.svc.CreateBurial(f.ctx, domain.CreateBurialRequest{
		GraveID:          graveID,
		DeceasedLastName: lastName,
		BurialDate:       burialDate,
	})
	require.NoError(f.t, err)
	return b
}

func (f *fixture) status(graveID string) domain.GraveStatus {
	f.t.Helper()
	g, err := f.svc.GetGrave(f.ctx, graveID)
	require.NoError(f.t, err)
	return g.Status
}

// derivedStatus computes the expected status straight from the tables.
func (f *fixture) derivedStatus(graveID string) domain.GraveStatus {
	f.t.Helper()
	var burials, active int64
	require.NoError(f.t, f.db.Model(&domain.Burial{}).Where("grave_id = ?", graveID).Count(&burials).Error)
	require.NoError(f.t, f.db.Model(&domain.Concession{}).
		Where("grave_id = ? AND status = ?", graveID, domain.ConcessionStatusActive).
		Count(&active).Error)
	return occupancy.Decide(burials > 0, active > 0)
}

var errStatusWrite = errors.New("graves: status write failed")

type failingGraves struct {
	domain.GraveRepository
}

func (failingGraves) UpdateStatus(ctx context.Context, db *gorm.DB, grave *domain.Grave) error {
	return errStatusWrite
}

// failStatusWrites rebuilds the engine so every grave status write fails
// inside the mutation's transaction.
func (f *fixture) failStatusWrites() {
	f.svc.engine = occupancy.NewEngine(occupancy.Params{
		Log:         zap.NewNop(),
		Clock:       f.clock,
		Graves:      failingGraves{GraveRepository: repository.ProvideGraves()},
		Concessions: repository.ProvideConcessions(),
		Burials:     repository.ProvideBurials(),
	})
}

// scopedConcessions remembers the parish each expiry listing ran under.
type scopedConcessions struct {
	domain.ConcessionRepository
	listed []string
}

func (r *scopedConcessions) ListExpiring(ctx context.Context, db *gorm.DB, parishID string, today calendar.Date, limit int) ([]*domain.Concession, error) {
	r.listed = append(r.listed, parishID)
	return r.ConcessionRepository.ListExpiring(ctx, db, parishID, today, limit)
}
