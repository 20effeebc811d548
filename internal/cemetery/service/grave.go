package service

import (
	"context"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/cemetery/occupancy"
	"github.com/smallbiznis/ecclesia/internal/cemetery/validation"
	pkgdb "github.com/smallbiznis/ecclesia/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) CreateGrave(ctx context.Context, req domain.CreateGraveRequest) (domain.Grave, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Grave{}, err
	}
	grave, err := s.validator.NewGrave(parishID, req)
	if err != nil {
		return domain.Grave{}, err
	}

	now := s.clock.Now()
	grave.ID = newID()
	grave.CreatedAt = now
	grave.UpdatedAt = now

	err = s.inTx(ctx, "create_grave", parishID, func(tx *gorm.DB) error {
		if err := s.checkPlacement(ctx, tx, grave); err != nil {
			return err
		}
		if err := s.graves.Insert(ctx, tx, &grave); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.NewConflict("code", "grave code is already used in this cemetery")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Grave{}, err
	}

	s.record(ctx, parishID, "grave.created", "grave", grave.ID, map[string]any{
		"cemetery_id": grave.CemeteryID,
		"code":        grave.Code,
	})
	return grave, nil
}

// checkPlacement verifies the layout references of a new grave: the cemetery
// must exist, the parcel must sit in it and the row in the parcel.
func (s *Service) checkPlacement(ctx context.Context, tx *gorm.DB, grave domain.Grave) error {
	cemetery, err := s.layout.FindCemetery(ctx, tx, grave.ParishID, grave.CemeteryID)
	if err != nil {
		return err
	}
	if cemetery == nil {
		return domain.NewNotFound("cemetery", grave.CemeteryID)
	}
	if grave.ParcelID == nil {
		return nil
	}

	parcel, err := s.layout.FindParcel(ctx, tx, grave.ParishID, *grave.ParcelID)
	if err != nil {
		return err
	}
	if parcel == nil {
		return domain.NewNotFound("parcel", *grave.ParcelID)
	}
	if parcel.CemeteryID != grave.CemeteryID {
		return domain.NewValidationError("parcel_id", "mismatch", "parcel does not belong to the cemetery")
	}
	if grave.RowID == nil {
		return nil
	}

	row, err := s.layout.FindRow(ctx, tx, grave.ParishID, *grave.RowID)
	if err != nil {
		return err
	}
	if row == nil {
		return domain.NewNotFound("row", *grave.RowID)
	}
	if row.ParcelID != parcel.ID {
		return domain.NewValidationError("row_id", "mismatch", "row does not belong to the parcel")
	}
	return nil
}

func (s *Service) GetGrave(ctx context.Context, id string) (domain.Grave, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Grave{}, err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return domain.Grave{}, err
	}

	var grave *domain.Grave
	err = s.inTx(ctx, "get_grave", parishID, func(tx *gorm.DB) error {
		var err error
		grave, err = s.graves.FindByID(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if grave == nil {
			return domain.NewNotFound("grave", id)
		}
		return nil
	})
	if err != nil {
		return domain.Grave{}, err
	}
	return *grave, nil
}

func (s *Service) UpdateGrave(ctx context.Context, id string, req domain.UpdateGraveRequest) (domain.Grave, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Grave{}, err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return domain.Grave{}, err
	}

	var updated domain.Grave
	err = s.inTx(ctx, "update_grave", parishID, func(tx *gorm.DB) error {
		current, err := s.graves.FindForUpdate(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NewNotFound("grave", id)
		}
		updated, err = s.validator.ApplyGraveUpdate(*current, req)
		if err != nil {
			return err
		}
		updated.UpdatedAt = s.clock.Now()
		if err := s.graves.UpdateDetails(ctx, tx, &updated); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.NewConflict("code", "grave code is already used in this cemetery")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Grave{}, err
	}

	s.record(ctx, parishID, "grave.updated", "grave", updated.ID, map[string]any{"code": updated.Code})
	return updated, nil
}

// SetMaintenance is the only way to put a grave into or out of maintenance.
// Leaving maintenance derives the status again from the grave's contents.
func (s *Service) SetMaintenance(ctx context.Context, id string, enabled bool) (domain.Grave, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Grave{}, err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return domain.Grave{}, err
	}

	var (
		grave   *domain.Grave
		changed bool
	)
	err = s.inTx(ctx, "set_maintenance", parishID, func(tx *gorm.DB) error {
		var err error
		grave, err = s.graves.FindForUpdate(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if grave == nil {
			return domain.NewNotFound("grave", id)
		}

		inMaintenance := grave.Status == domain.GraveStatusMaintenance
		switch {
		case enabled && !inMaintenance:
			grave.Status = domain.GraveStatusMaintenance
			grave.UpdatedAt = s.clock.Now()
			changed = true
			return s.graves.UpdateStatus(ctx, tx, grave)
		case !enabled && inMaintenance:
			outcome, err := s.engine.Recompute(ctx, tx, parishID, id, occupancy.CauseMaintenanceCleared)
			if err != nil {
				return err
			}
			grave.Status = outcome.Status
			grave.UpdatedAt = s.clock.Now()
			changed = true
			return nil
		default:
			return nil
		}
	})
	if err != nil {
		return domain.Grave{}, err
	}

	if changed {
		s.log.Info("grave maintenance toggled",
			zap.String("grave_id", grave.ID),
			zap.Bool("maintenance", enabled),
			zap.String("status", string(grave.Status)),
		)
		s.record(ctx, parishID, "grave.maintenance_changed", "grave", grave.ID, map[string]any{
			"maintenance": enabled,
			"status":      string(grave.Status),
		})
	}
	return *grave, nil
}

func (s *Service) DeleteGrave(ctx context.Context, id string) error {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, "delete_grave", parishID, func(tx *gorm.DB) error {
		grave, err := s.graves.FindForUpdate(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if grave == nil {
			return domain.NewNotFound("grave", id)
		}
		dependents, err := s.graves.CountDependents(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if dependents > 0 {
			return domain.NewConflict("id", "grave still has concessions or burials")
		}
		_, err = s.graves.Delete(ctx, tx, parishID, id)
		return err
	})
	if err != nil {
		return err
	}

	s.record(ctx, parishID, "grave.deleted", "grave", id, nil)
	return nil
}
