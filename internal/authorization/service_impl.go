package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	"github.com/smallbiznis/ecclesia/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed model.conf
var modelText string

const (
	ObjectLayout     = "layout"
	ObjectGrave      = "grave"
	ObjectConcession = "concession"
	ObjectBurial     = "burial"
	ObjectPayment    = "payment"
	ObjectOccupancy  = "occupancy"
	ObjectClient     = "client"
	ObjectAuditLog   = "audit_log"
	ObjectMember     = "member"
)

const (
	ActionLayoutView   = "layout.view"
	ActionLayoutManage = "layout.manage"

	ActionGraveView        = "grave.view"
	ActionGraveCreate      = "grave.create"
	ActionGraveUpdate      = "grave.update"
	ActionGraveMaintenance = "grave.maintenance"
	ActionGraveDelete      = "grave.delete"

	ActionConcessionView   = "concession.view"
	ActionConcessionCreate = "concession.create"
	ActionConcessionUpdate = "concession.update"
	ActionConcessionDelete = "concession.delete"
	ActionConcessionExpire = "concession.expire"

	ActionBurialView   = "burial.view"
	ActionBurialCreate = "burial.create"
	ActionBurialDelete = "burial.delete"

	ActionPaymentView   = "payment.view"
	ActionPaymentRecord = "payment.record"

	ActionOccupancyView = "occupancy.view"

	ActionClientView   = "client.view"
	ActionClientCreate = "client.create"
	ActionClientUpdate = "client.update"

	ActionAuditLogView = "audit_log.view"

	ActionMemberManage = "member.manage"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		clock:    p.Clock,
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, parishID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	parishID = strings.ToLower(strings.TrimSpace(parishID))
	if _, err := uuid.Parse(parishID); err != nil {
		return ErrInvalidParish
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, parishID)
	if err != nil {
		s.auditDecision(ctx, "authorization.denied", actor, parishID, object, action)
		return err
	}

	domain := fmt.Sprintf("parish:%s", parishID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor", actor),
			zap.String("parish_id", parishID),
			zap.String("action", action),
		)
		s.auditDecision(ctx, "authorization.denied", actor, parishID, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditDecision(ctx, "authorization.granted", actor, parishID, object, action)
	}
	return nil
}

// AssignRole creates or replaces the membership of userID in parishID.
func (s *ServiceImpl) AssignRole(ctx context.Context, parishID string, userID string, role string) error {
	parishID = strings.ToLower(strings.TrimSpace(parishID))
	if _, err := uuid.Parse(parishID); err != nil {
		return ErrInvalidParish
	}
	userID = strings.ToLower(strings.TrimSpace(userID))
	if _, err := uuid.Parse(userID); err != nil {
		return ErrInvalidUser
	}
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case RoleOwner, RoleClerk, RoleViewer:
	default:
		return ErrInvalidRole
	}

	now := s.clock.Now()
	member := ParishMember{
		ParishID:  parishID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "parish_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&member).Error
	if err != nil {
		return err
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.Entry{
			ParishID:   parishID,
			Action:     "member.role_assigned",
			TargetType: "member",
			TargetID:   userID,
			Metadata:   map[string]any{"role": role},
		})
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, parishID string) (string, string, error) {
	if actor == auditdomain.ActorSystem {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userID, err := uuid.Parse(strings.TrimPrefix(actor, "user:"))
		if err != nil {
			return "", "", ErrInvalidActor
		}
		role, err := s.roleForUser(ctx, parishID, userID.String())
		if err != nil {
			return "", "", err
		}
		return "user:" + userID.String(), fmt.Sprintf("role:%s", role), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, parishID string, userID string) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM parish_members
		 WHERE parish_id = ? AND user_id = ?
		 LIMIT 1`,
		parishID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.ToLower(strings.TrimSpace(row.Role))
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps exactly one role link per subject and parish, so a
// changed membership takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDecision(ctx context.Context, event string, actor string, parishID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ParishID:   parishID,
		Action:     event,
		TargetType: "authorization",
		TargetID:   "capability",
		Metadata: map[string]any{
			"object":  object,
			"action":  action,
			"subject": actor,
		},
	})
	if err != nil {
		s.log.Warn("failed to audit authorization decision", zap.String("event", event), zap.Error(err))
	}
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionConcessionDelete, ActionBurialDelete, ActionGraveDelete, ActionConcessionExpire, ActionMemberManage:
		return true
	default:
		return false
	}
}

var (
	viewerActions = [][2]string{
		{ObjectLayout, ActionLayoutView},
		{ObjectGrave, ActionGraveView},
		{ObjectConcession, ActionConcessionView},
		{ObjectBurial, ActionBurialView},
		{ObjectPayment, ActionPaymentView},
		{ObjectOccupancy, ActionOccupancyView},
		{ObjectClient, ActionClientView},
	}
	clerkActions = [][2]string{
		{ObjectGrave, ActionGraveCreate},
		{ObjectGrave, ActionGraveUpdate},
		{ObjectGrave, ActionGraveMaintenance},
		{ObjectConcession, ActionConcessionCreate},
		{ObjectConcession, ActionConcessionUpdate},
		{ObjectBurial, ActionBurialCreate},
		{ObjectPayment, ActionPaymentRecord},
		{ObjectClient, ActionClientCreate},
		{ObjectClient, ActionClientUpdate},
	}
	ownerActions = [][2]string{
		{ObjectLayout, ActionLayoutManage},
		{ObjectGrave, ActionGraveDelete},
		{ObjectConcession, ActionConcessionDelete},
		{ObjectConcession, ActionConcessionExpire},
		{ObjectBurial, ActionBurialDelete},
		{ObjectAuditLog, ActionAuditLogView},
		{ObjectMember, ActionMemberManage},
	}
)

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	grants := map[string][][][2]string{
		"role:" + RoleViewer: {viewerActions},
		"role:" + RoleClerk:  {viewerActions, clerkActions},
		"role:" + RoleOwner:  {viewerActions, clerkActions, ownerActions},
		"role:system":        {viewerActions, clerkActions, ownerActions},
	}

	for role, sets := range grants {
		for _, set := range sets {
			for _, grant := range set {
				if _, err := enforcer.AddPolicy(role, grant[0], grant[1]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
