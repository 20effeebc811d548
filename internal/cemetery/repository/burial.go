package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"gorm.io/gorm"
)

type burialRepo struct{}

func ProvideBurials() domain.BurialRepository {
	return &burialRepo{}
}

func (r *burialRepo) Insert(ctx context.Context, db *gorm.DB, burial *domain.Burial) error {
	return db.WithContext(ctx).Create(burial).Error
}

func (r *burialRepo) FindByID(ctx context.Context, db *gorm.DB, parishID, id string) (*domain.Burial, error) {
	var burial domain.Burial
	err := db.WithContext(ctx).
		Where("parish_id = ? AND id = ?", parishID, id).
		Take(&burial).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &burial, nil
}

func (r *burialRepo) List(ctx context.Context, db *gorm.DB, parishID string, filter domain.BurialListFilter) ([]*domain.Burial, error) {
	var burials []*domain.Burial
	stmt := db.WithContext(ctx).
		Model(&domain.Burial{}).
		Where("parish_id = ?", parishID)
	if filter.GraveID != "" {
		stmt = stmt.Where("grave_id = ?", filter.GraveID)
	}
	err := stmt.
		Order("burial_date desc, id asc").
		Find(&burials).Error
	if err != nil {
		return nil, err
	}
	return burials, nil
}

func (r *burialRepo) Delete(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	res := db.WithContext(ctx).
		Where("parish_id = ? AND id = ?", parishID, id).
		Delete(&domain.Burial{})
	return res.RowsAffected, res.Error
}

func (r *burialRepo) CountForGrave(ctx context.Context, db *gorm.DB, parishID, graveID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Burial{}).
		Where("parish_id = ? AND grave_id = ?", parishID, graveID).
		Count(&count).Error
	return count, err
}
