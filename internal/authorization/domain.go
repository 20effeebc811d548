package authorization

import (
	"context"
	"errors"
	"time"
)

const (
	RoleOwner  = "owner"
	RoleClerk  = "clerk"
	RoleViewer = "viewer"
)

// ParishMember grants a user one role inside a parish.
type ParishMember struct {
	ParishID  string    `gorm:"type:uuid;primaryKey" json:"parish_id"`
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role      string    `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ParishMember) TableName() string { return "parish_members" }

type Service interface {
	Authorize(ctx context.Context, actor string, parishID string, object string, action string) error
	AssignRole(ctx context.Context, parishID string, userID string, role string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidParish = errors.New("invalid_parish")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidUser   = errors.New("invalid_user")
)
