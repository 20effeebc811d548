package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type ListClientFilter struct {
	Name   string
	Email  string
	Cursor *ClientCursor
	Limit  int
}

type ClientCursor struct {
	ID        string
	CreatedAt time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, parishID, id string) (*Client, error)
	List(ctx context.Context, db *gorm.DB, parishID string, filter ListClientFilter) ([]*Client, error)
	Update(ctx context.Context, db *gorm.DB, client *Client) error
	// ClientExists lets other modules check references inside their own
	// transaction.
	ClientExists(ctx context.Context, db *gorm.DB, parishID, id string) (bool, error)
}
