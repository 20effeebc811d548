package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/pkg/calendar"
	"gorm.io/gorm"
)

type concessionRepo struct{}

func ProvideConcessions() domain.ConcessionRepository {
	return &concessionRepo{}
}

func (r *concessionRepo) Insert(ctx context.Context, db *gorm.DB, concession *domain.Concession) error {
	return db.WithContext(ctx).Create(concession).Error
}

func (r *concessionRepo) FindByID(ctx context.Context, db *gorm.DB, parishID, id string) (*domain.Concession, error) {
	var concession domain.Concession
	err := db.WithContext(ctx).
		Where("parish_id = ? AND id = ?", parishID, id).
		Take(&concession).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &concession, nil
}

func (r *concessionRepo) List(ctx context.Context, db *gorm.DB, parishID string, filter domain.ConcessionListFilter) ([]*domain.Concession, error) {
	var concessions []*domain.Concession
	stmt := db.WithContext(ctx).
		Model(&domain.Concession{}).
		Where("parish_id = ?", parishID)
	if filter.GraveID != "" {
		stmt = stmt.Where("grave_id = ?", filter.GraveID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	err := stmt.
		Order("start_date desc, id asc").
		Find(&concessions).Error
	if err != nil {
		return nil, err
	}
	return concessions, nil
}

func (r *concessionRepo) Update(ctx context.Context, db *gorm.DB, concession *domain.Concession) error {
	return db.WithContext(ctx).
		Model(&domain.Concession{}).
		Where("parish_id = ? AND id = ?", concession.ParishID, concession.ID).
		Updates(map[string]any{
			"holder_client_id": concession.HolderClientID,
			"contract_number":  concession.ContractNumber,
			"contract_date":    concession.ContractDate,
			"start_date":       concession.StartDate,
			"expiry_date":      concession.ExpiryDate,
			"status":           concession.Status,
			"annual_fee":       concession.AnnualFee,
			"currency":         concession.Currency,
			"notes":            concession.Notes,
			"updated_at":       concession.UpdatedAt,
		}).Error
}

func (r *concessionRepo) Delete(ctx context.Context, db *gorm.DB, parishID, id string) (int64, error) {
	res := db.WithContext(ctx).
		Where("parish_id = ? AND id = ?", parishID, id).
		Delete(&domain.Concession{})
	return res.RowsAffected, res.Error
}

func (r *concessionRepo) HasActiveForGrave(ctx context.Context, db *gorm.DB, parishID, graveID, excludeID string) (bool, error) {
	var count int64
	stmt := db.WithContext(ctx).
		Model(&domain.Concession{}).
		Where("parish_id = ? AND grave_id = ? AND status = ?", parishID, graveID, domain.ConcessionStatusActive)
	if excludeID != "" {
		stmt = stmt.Where("id <> ?", excludeID)
	}
	if err := stmt.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *concessionRepo) ContractNumberTaken(ctx context.Context, db *gorm.DB, parishID, contractNumber, excludeID string) (bool, error) {
	var count int64
	stmt := db.WithContext(ctx).
		Model(&domain.Concession{}).
		Where("parish_id = ? AND contract_number = ?", parishID, contractNumber)
	if excludeID != "" {
		stmt = stmt.Where("id <> ?", excludeID)
	}
	if err := stmt.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListExpiringParishes goes through the expiring_concession_parishes function
// on postgres, which runs as the table owner.
func (r *concessionRepo) ListExpiringParishes(ctx context.Context, db *gorm.DB, today calendar.Date) ([]string, error) {
	var parishes []string
	if db.Dialector.Name() == "postgres" {
		err := db.WithContext(ctx).
			Raw("SELECT parish_id::text FROM expiring_concession_parishes(?)", today).
			Scan(&parishes).Error
		return parishes, err
	}
	err := db.WithContext(ctx).
		Model(&domain.Concession{}).
		Where("status = ? AND expiry_date < ?", domain.ConcessionStatusActive, today).
		Distinct("parish_id").
		Order("parish_id asc").
		Pluck("parish_id", &parishes).Error
	return parishes, err
}

func (r *concessionRepo) ListExpiring(ctx context.Context, db *gorm.DB, parishID string, today calendar.Date, limit int) ([]*domain.Concession, error) {
	var concessions []*domain.Concession
	stmt := db.WithContext(ctx).
		Model(&domain.Concession{}).
		Where("parish_id = ? AND status = ? AND expiry_date < ?", parishID, domain.ConcessionStatusActive, today)
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	err := stmt.
		Order("expiry_date asc, id asc").
		Find(&concessions).Error
	if err != nil {
		return nil, err
	}
	return concessions, nil
}

// MarkExpired only flips rows that are still active, so a concurrent update
// wins over the sweep.
func (r *concessionRepo) MarkExpired(ctx context.Context, db *gorm.DB, concession *domain.Concession) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Concession{}).
		Where("parish_id = ? AND id = ? AND status = ?", concession.ParishID, concession.ID, domain.ConcessionStatusActive).
		Updates(map[string]any{
			"status":     domain.ConcessionStatusExpired,
			"updated_at": concession.UpdatedAt,
		})
	return res.RowsAffected, res.Error
}
