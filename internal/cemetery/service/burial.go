package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/cemetery/occupancy"
	"github.com/smallbiznis/ecclesia/internal/cemetery/validation"
	"gorm.io/gorm"
)

func (s *Service) CreateBurial(ctx context.Context, req domain.CreateBurialRequest) (domain.Burial, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Burial{}, err
	}

	var (
		burial  domain.Burial
		outcome occupancy.Outcome
	)
	err = s.inTx(ctx, "create_burial", parishID, func(tx *gorm.DB) error {
		var err error
		burial, err = s.validator.NewBurial(ctx, s.lookup(tx), parishID, req)
		if err != nil {
			return err
		}

		grave, err := s.graves.FindForUpdate(ctx, tx, parishID, burial.GraveID)
		if err != nil {
			return err
		}
		if grave == nil {
			return domain.NewNotFound("grave", burial.GraveID)
		}

		now := s.clock.Now()
		burial.ID = newID()
		burial.CreatedAt = now
		burial.UpdatedAt = now
		if err := s.burials.Insert(ctx, tx, &burial); err != nil {
			return err
		}

		outcome, err = s.engine.Recompute(ctx, tx, parishID, grave.ID, occupancy.CauseBurialCreated)
		return err
	})
	if err != nil {
		return domain.Burial{}, err
	}

	metadata := outcomeMetadata(outcome)
	metadata["burial_date"] = burial.BurialDate.String()
	s.record(ctx, parishID, "burial.created", "burial", burial.ID, metadata)
	return burial, nil
}

func (s *Service) GetBurial(ctx context.Context, id string) (domain.Burial, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Burial{}, err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return domain.Burial{}, err
	}

	var burial *domain.Burial
	err = s.inTx(ctx, "get_burial", parishID, func(tx *gorm.DB) error {
		var err error
		burial, err = s.burials.FindByID(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if burial == nil {
			return domain.NewNotFound("burial", id)
		}
		return nil
	})
	if err != nil {
		return domain.Burial{}, err
	}
	return *burial, nil
}

func (s *Service) ListBurials(ctx context.Context, req domain.ListBurialsRequest) ([]domain.Burial, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return nil, err
	}
	req.GraveID = strings.ToLower(strings.TrimSpace(req.GraveID))
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var items []*domain.Burial
	err = s.inTx(ctx, "list_burials", parishID, func(tx *gorm.DB) error {
		var err error
		items, err = s.burials.List(ctx, tx, parishID, domain.BurialListFilter{GraveID: req.GraveID})
		return err
	})
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

// DeleteBurial removes the burial and recomputes its grave in the same
// transaction. Deleting an absent burial reports NotFound and writes nothing.
func (s *Service) DeleteBurial(ctx context.Context, id string) (domain.Burial, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Burial{}, err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return domain.Burial{}, err
	}

	var (
		burial  *domain.Burial
		outcome occupancy.Outcome
	)
	err = s.inTx(ctx, "delete_burial", parishID, func(tx *gorm.DB) error {
		var err error
		burial, err = s.burials.FindByID(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if burial == nil {
			return domain.NewNotFound("burial", id)
		}

		deleted, err := s.burials.Delete(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.NewNotFound("burial", id)
		}

		outcome, err = s.engine.Recompute(ctx, tx, parishID, burial.GraveID, occupancy.CauseBurialDeleted)
		return err
	})
	if err != nil {
		return domain.Burial{}, err
	}

	s.record(ctx, parishID, "burial.deleted", "burial", burial.ID, outcomeMetadata(outcome))
	return *burial, nil
}
