package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/ecclesia/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ParishMember{}))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		Enforcer: enforcer,
	})
}

func TestAuthorizeByRole(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	parishID := uuid.NewString()
	viewer := uuid.NewString()
	clerk := uuid.NewString()
	owner := uuid.NewString()
	require.NoError(t, svc.AssignRole(ctx, parishID, viewer, RoleViewer))
	require.NoError(t, svc.AssignRole(ctx, parishID, clerk, RoleClerk))
	require.NoError(t, svc.AssignRole(ctx, parishID, owner, "Owner"))

	cases := []struct {
		name   string
		user   string
		object string
		action string
		want   error
	}{
		{"viewer reads occupancy", viewer, ObjectOccupancy, ActionOccupancyView, nil},
		{"viewer cannot bury", viewer, ObjectBurial, ActionBurialCreate, ErrForbidden},
		{"clerk records payment", clerk, ObjectPayment, ActionPaymentRecord, nil},
		{"clerk cannot delete burial", clerk, ObjectBurial, ActionBurialDelete, ErrForbidden},
		{"clerk cannot read audit", clerk, ObjectAuditLog, ActionAuditLogView, ErrForbidden},
		{"owner deletes concession", owner, ObjectConcession, ActionConcessionDelete, nil},
		{"owner manages layout", owner, ObjectLayout, ActionLayoutManage, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(ctx, "user:"+tc.user, parishID, tc.object, tc.action)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthorizeIsScopedToParish(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	parishID := uuid.NewString()
	user := uuid.NewString()
	require.NoError(t, svc.AssignRole(ctx, parishID, user, RoleOwner))

	err := svc.Authorize(ctx, "user:"+user, uuid.NewString(), ObjectGrave, ActionGraveView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	parishID := uuid.NewString()
	user := uuid.NewString()

	require.NoError(t, svc.AssignRole(ctx, parishID, user, RoleOwner))
	require.NoError(t, svc.Authorize(ctx, "user:"+user, parishID, ObjectGrave, ActionGraveDelete))

	require.NoError(t, svc.AssignRole(ctx, parishID, user, RoleViewer))
	assert.ErrorIs(t, svc.Authorize(ctx, "user:"+user, parishID, ObjectGrave, ActionGraveDelete), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, "user:"+user, parishID, ObjectGrave, ActionGraveView))
}

func TestAuthorizeSystemActor(t *testing.T) {
	svc := newTestService(t)
	err := svc.Authorize(context.Background(), "system", uuid.NewString(), ObjectConcession, ActionConcessionExpire)
	assert.NoError(t, err)
}

func TestAuthorizeRejectsMalformedInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	parishID := uuid.NewString()

	assert.ErrorIs(t, svc.Authorize(ctx, "", parishID, ObjectGrave, ActionGraveView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:42", parishID, ObjectGrave, ActionGraveView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "api_key:1", parishID, ObjectGrave, ActionGraveView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "system", "parish-1", ObjectGrave, ActionGraveView), ErrInvalidParish)
	assert.ErrorIs(t, svc.Authorize(ctx, "system", parishID, "", ActionGraveView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "system", parishID, ObjectGrave, " "), ErrInvalidAction)
	assert.ErrorIs(t, svc.Authorize(ctx, "user:"+uuid.NewString(), parishID, ObjectGrave, ActionGraveView), ErrForbidden)
}

func TestAssignRoleValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AssignRole(ctx, "x", uuid.NewString(), RoleOwner), ErrInvalidParish)
	assert.ErrorIs(t, svc.AssignRole(ctx, uuid.NewString(), "x", RoleOwner), ErrInvalidUser)
	assert.ErrorIs(t, svc.AssignRole(ctx, uuid.NewString(), uuid.NewString(), "bishop"), ErrInvalidRole)
}
