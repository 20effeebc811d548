package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	"github.com/smallbiznis/ecclesia/internal/audit/repository"
	"github.com/smallbiznis/ecclesia/internal/clock"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*Service, *clock.FakeClock) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, fake
}

func TestRecordResolvesParishAndActorFromContext(t *testing.T) {
	svc, _ := setupService(t)
	parishID := uuid.NewString()
	ctx := orgcontext.WithActor(orgcontext.WithParishID(context.Background(), parishID), "user:1")

	err := svc.Record(ctx, auditdomain.Entry{
		Action:     "burial.delete",
		TargetType: "burial",
		TargetID:   "b-1",
		Metadata:   map[string]any{"email": "jan@example.com"},
	})
	require.NoError(t, err)

	resp, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	entry := resp.AuditLogs[0]
	assert.Equal(t, parishID, entry.ParishID)
	assert.Equal(t, "user:1", entry.Actor)
	assert.Equal(t, "****com", entry.Metadata["email"])
}

func TestRecordRequiresAction(t *testing.T) {
	svc, _ := setupService(t)
	err := svc.Record(context.Background(), auditdomain.Entry{ParishID: uuid.NewString()})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginates(t *testing.T) {
	svc, fake := setupService(t)
	ctx := orgcontext.WithParishID(context.Background(), uuid.NewString())

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: "grave.create", TargetType: "grave"}))
		fake.Advance(time.Minute)
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 3)
	assert.False(t, first.HasMore)

	req := auditdomain.ListAuditLogRequest{}
	req.PageSize = 2
	page, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, page.AuditLogs, 2)
	require.True(t, page.HasMore)

	req.PageToken = page.NextPageToken
	rest, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, rest.AuditLogs, 1)
}
