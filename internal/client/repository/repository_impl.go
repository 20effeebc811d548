package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/ecclesia/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, parish_id, name, email, phone, address, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.ParishID,
		client.Name,
		client.Email,
		client.Phone,
		client.Address,
		client.Metadata,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, parishID, id string) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, parish_id, name, email, phone, address, metadata, created_at, updated_at
		 FROM clients WHERE parish_id = ? AND id = ?`,
		parishID,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == "" {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, parishID string, filter domain.ListClientFilter) ([]*domain.Client, error) {
	var clients []*domain.Client
	stmt := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("parish_id = ?", parishID)
	if name := strings.TrimSpace(filter.Name); name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if email := strings.TrimSpace(filter.Email); email != "" {
		stmt = stmt.Where("email = ?", email)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}
	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("parish_id = ? AND id = ?", client.ParishID, client.ID).
		Updates(map[string]any{
			"name":       client.Name,
			"email":      client.Email,
			"phone":      client.Phone,
			"address":    client.Address,
			"metadata":   client.Metadata,
			"updated_at": client.UpdatedAt,
		}).Error
}

func (r *repo) ClientExists(ctx context.Context, db *gorm.DB, parishID, id string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("parish_id = ? AND id = ?", parishID, id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
