package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/cemetery/validation"
	"gorm.io/gorm"
)

func (s *Service) CreateCemetery(ctx context.Context, req domain.CreateCemeteryRequest) (domain.Cemetery, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Cemetery{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := s.validator.Struct(req); err != nil {
		return domain.Cemetery{}, err
	}

	now := s.clock.Now()
	cemetery := domain.Cemetery{
		ID:        newID(),
		ParishID:  parishID,
		Name:      req.Name,
		Address:   req.Address,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.inTx(ctx, "create_cemetery", parishID, func(tx *gorm.DB) error {
		return s.layout.InsertCemetery(ctx, tx, &cemetery)
	})
	if err != nil {
		return domain.Cemetery{}, err
	}

	s.record(ctx, parishID, "cemetery.created", "cemetery", cemetery.ID, map[string]any{"name": cemetery.Name})
	return cemetery, nil
}

func (s *Service) ListCemeteries(ctx context.Context) ([]domain.Cemetery, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return nil, err
	}
	var items []*domain.Cemetery
	err = s.inTx(ctx, "list_cemeteries", parishID, func(tx *gorm.DB) error {
		var err error
		items, err = s.layout.ListCemeteries(ctx, tx, parishID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) DeleteCemetery(ctx context.Context, id string) error {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, "delete_cemetery", parishID, func(tx *gorm.DB) error {
		dependents, err := s.layout.CountCemeteryDependents(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if dependents > 0 {
			return domain.NewConflict("id", "cemetery still has parcels or graves")
		}
		deleted, err := s.layout.DeleteCemetery(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.NewNotFound("cemetery", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(ctx, parishID, "cemetery.deleted", "cemetery", id, nil)
	return nil
}

func (s *Service) CreateParcel(ctx context.Context, req domain.CreateParcelRequest) (domain.Parcel, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Parcel{}, err
	}
	req.CemeteryID = strings.ToLower(strings.TrimSpace(req.CemeteryID))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return domain.Parcel{}, err
	}

	now := s.clock.Now()
	parcel := domain.Parcel{
		ID:         newID(),
		ParishID:   parishID,
		CemeteryID: req.CemeteryID,
		Name:       req.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = s.inTx(ctx, "create_parcel", parishID, func(tx *gorm.DB) error {
		cemetery, err := s.layout.FindCemetery(ctx, tx, parishID, parcel.CemeteryID)
		if err != nil {
			return err
		}
		if cemetery == nil {
			return domain.NewNotFound("cemetery", parcel.CemeteryID)
		}
		return s.layout.InsertParcel(ctx, tx, &parcel)
	})
	if err != nil {
		return domain.Parcel{}, err
	}

	s.record(ctx, parishID, "parcel.created", "parcel", parcel.ID, map[string]any{"cemetery_id": parcel.CemeteryID})
	return parcel, nil
}

func (s *Service) ListParcels(ctx context.Context, cemeteryID string) ([]domain.Parcel, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return nil, err
	}
	cemeteryID, err = validation.ID("cemetery_id", cemeteryID)
	if err != nil {
		return nil, err
	}

	var items []*domain.Parcel
	err = s.inTx(ctx, "list_parcels", parishID, func(tx *gorm.DB) error {
		cemetery, err := s.layout.FindCemetery(ctx, tx, parishID, cemeteryID)
		if err != nil {
			return err
		}
		if cemetery == nil {
			return domain.NewNotFound("cemetery", cemeteryID)
		}
		items, err = s.layout.ListParcels(ctx, tx, parishID, cemeteryID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) DeleteParcel(ctx context.Context, id string) error {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, "delete_parcel", parishID, func(tx *gorm.DB) error {
		dependents, err := s.layout.CountParcelDependents(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if dependents > 0 {
			return domain.NewConflict("id", "parcel still has rows or graves")
		}
		deleted, err := s.layout.DeleteParcel(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.NewNotFound("parcel", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(ctx, parishID, "parcel.deleted", "parcel", id, nil)
	return nil
}

func (s *Service) CreateRow(ctx context.Context, req domain.CreateRowRequest) (domain.Row, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Row{}, err
	}
	req.ParcelID = strings.ToLower(strings.TrimSpace(req.ParcelID))
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return domain.Row{}, err
	}

	now := s.clock.Now()
	row := domain.Row{
		ID:        newID(),
		ParishID:  parishID,
		ParcelID:  req.ParcelID,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.inTx(ctx, "create_row", parishID, func(tx *gorm.DB) error {
		parcel, err := s.layout.FindParcel(ctx, tx, parishID, row.ParcelID)
		if err != nil {
			return err
		}
		if parcel == nil {
			return domain.NewNotFound("parcel", row.ParcelID)
		}
		return s.layout.InsertRow(ctx, tx, &row)
	})
	if err != nil {
		return domain.Row{}, err
	}

	s.record(ctx, parishID, "row.created", "row", row.ID, map[string]any{"parcel_id": row.ParcelID})
	return row, nil
}

func (s *Service) ListRows(ctx context.Context, parcelID string) ([]domain.Row, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return nil, err
	}
	parcelID, err = validation.ID("parcel_id", parcelID)
	if err != nil {
		return nil, err
	}

	var items []*domain.Row
	err = s.inTx(ctx, "list_rows", parishID, func(tx *gorm.DB) error {
		parcel, err := s.layout.FindParcel(ctx, tx, parishID, parcelID)
		if err != nil {
			return err
		}
		if parcel == nil {
			return domain.NewNotFound("parcel", parcelID)
		}
		items, err = s.layout.ListRows(ctx, tx, parishID, parcelID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (s *Service) DeleteRow(ctx context.Context, id string) error {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, "delete_row", parishID, func(tx *gorm.DB) error {
		dependents, err := s.layout.CountRowDependents(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if dependents > 0 {
			return domain.NewConflict("id", "row still has graves")
		}
		deleted, err := s.layout.DeleteRow(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.NewNotFound("row", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(ctx, parishID, "row.deleted", "row", id, nil)
	return nil
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}
