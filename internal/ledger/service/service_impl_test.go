package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ecclesia/internal/clock"
	ledgerdomain "github.com/smallbiznis/ecclesia/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&ledgerdomain.LedgerAccount{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.LedgerEntryLine{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
	}).(*Service)
	return svc, db
}

func TestPostConcessionPaymentWritesBalancedLines(t *testing.T) {
	svc, db := setupLedger(t)
	ctx := context.Background()
	parishID := uuid.NewString()
	paymentID := uuid.NewString()

	result, err := svc.PostConcessionPayment(ctx, ledgerdomain.PaymentPosting{
		ParishID:   parishID,
		PaymentID:  paymentID,
		Currency:   "pln",
		Amount:     decimal.RequireFromString("250.00"),
		OccurredAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, result.Inserted)

	lines, err := svc.ListLines(ctx, parishID, ledgerdomain.SourceTypeConcessionPayment, paymentID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, int64(25000), line.Amount)
		assert.Equal(t, "PLN", line.Currency)
	}

	var accounts int64
	require.NoError(t, db.Model(&ledgerdomain.LedgerAccount{}).Where("parish_id = ?", parishID).Count(&accounts).Error)
	assert.Equal(t, int64(2), accounts)
}

func TestPostConcessionPaymentIsIdempotentPerSource(t *testing.T) {
	svc, db := setupLedger(t)
	ctx := context.Background()
	posting := ledgerdomain.PaymentPosting{
		ParishID:   uuid.NewString(),
		PaymentID:  uuid.NewString(),
		Currency:   "EUR",
		Amount:     decimal.RequireFromString("10"),
		OccurredAt: time.Now(),
	}

	first, err := svc.PostConcessionPayment(ctx, posting)
	require.NoError(t, err)
	second, err := svc.PostConcessionPayment(ctx, posting)
	require.NoError(t, err)

	assert.False(t, second.Inserted)
	assert.Equal(t, first.EntryID, second.EntryID)

	var lines int64
	require.NoError(t, db.Model(&ledgerdomain.LedgerEntryLine{}).Count(&lines).Error)
	assert.Equal(t, int64(2), lines)
}

func TestCreateEntryRejectsInvalidInput(t *testing.T) {
	svc, _ := setupLedger(t)
	ctx := context.Background()
	base := ledgerdomain.CreateEntryRequest{
		ParishID:   uuid.NewString(),
		SourceType: ledgerdomain.SourceTypeConcessionPayment,
		SourceID:   "p-1",
		Currency:   "EUR",
		OccurredAt: time.Now(),
		Lines: []ledgerdomain.PostingLine{
			{Account: ledgerdomain.AccountCodeCash, Direction: "debit", Amount: 100},
			{Account: ledgerdomain.AccountCodeConcessionRevenue, Direction: "credit", Amount: 90},
		},
	}

	_, err := svc.CreateEntry(ctx, base)
	assert.ErrorIs(t, err, ledgerdomain.ErrUnbalancedEntry)

	noCurrency := base
	noCurrency.Currency = ""
	_, err = svc.CreateEntry(ctx, noCurrency)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidCurrency)

	badDirection := base
	badDirection.Lines = []ledgerdomain.PostingLine{
		{Account: ledgerdomain.AccountCodeCash, Direction: "sideways", Amount: 100},
		{Account: ledgerdomain.AccountCodeConcessionRevenue, Direction: "credit", Amount: 100},
	}
	_, err = svc.CreateEntry(ctx, badDirection)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidLineDirection)

	_, err = svc.PostConcessionPayment(ctx, ledgerdomain.PaymentPosting{
		ParishID: uuid.NewString(), PaymentID: "p", Currency: "EUR", Amount: decimal.RequireFromString("-5"), OccurredAt: time.Now(),
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidLineAmount)
}
