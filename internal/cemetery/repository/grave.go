package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	pkgdb "github.com/smallbiznis/ecclesia/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type graveRepo struct{}

func ProvideGraves() domain.GraveRepository {
	return &graveRepo{}
}

func (r *graveRepo) Insert(ctx context.Context, db *gorm.DB, grave *domain.Grave) error {
	return db.WithContext(ctx).Create(grave).Error
}

func (r *graveRepo) FindByID(ctx context.Context, db *gorm.DB, parishID, id string) (*domain.Grave, error) {
	return r.find(db.WithContext(ctx), parishID, id)
}

func (r *graveRepo) FindForUpdate(ctx context.Context, db *gorm.DB, parishID, id string) (*domain.Grave, error) {
	stmt := db.WithContext(ctx)
	if pkgdb.SupportsRowLocks(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(stmt, parishID, id)
}

func (r *graveRepo) find(stmt *gorm.DB, parishID, id string) (*domain.Grave, error) {
	var grave domain.Grave
	err := stmt.Where("parish_id = ? AND id = ?", parishID, id).Take(&grave).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &grave, nil
}

func (r *graveRepo) UpdateDetails(ctx context.Context, db *gorm.DB, grave *domain.Grave) error {
	return db.WithContext(ctx).
		Model(&domain.Grave{}).
		Where("parish_id = ? AND id = ?", grave.ParishID, grave.ID).
		Updates(map[string]any{
			"code":       grave.Code,
			"width":      grave.Width,
			"length":     grave.Length,
			"position":   grave.Position,
			"notes":      grave.Notes,
			"updated_at": grave.UpdatedAt,
		}).Error
}

func (r *graveRepo) UpdateStatus(ctx context.Context, db *gorm.DB, grave *domain.Grave) error {
	return db.WithContext(ctx).
		Model(&domain.Grave{}).
		Where("parish_id = ? AND id = ?", grave.ParishID, grave.ID).
		Updates(map[string]any{
			"status":     grave.Status,
			"updated_at": grave.UpdatedAt,
		}).Error
}

func (r *graveRepo) Delete(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	res := db.WithContext(ctx).
		Where("parish_id = ? AND id = ?", parishID, id).
		Delete(&domain.Grave{})
	return res.RowsAffected, res.Error
}

func (r *graveRepo) CountDependents(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	return countDependents(ctx, db,
		`SELECT
			(SELECT COUNT(*) FROM concessions WHERE parish_id = ? AND grave_id = ?) +
			(SELECT COUNT(*) FROM burials WHERE parish_id = ? AND grave_id = ?)`,
		parishID, id, parishID, id,
	)
}
