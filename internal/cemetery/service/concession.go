package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/cemetery/occupancy"
	"github.com/smallbiznis/ecclesia/internal/cemetery/validation"
	"github.com/smallbiznis/ecclesia/pkg/calendar"
	pkgdb "github.com/smallbiznis/ecclesia/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const expireBatchSize = 200

var errActiveConcessionExists = domain.NewConflict("grave_id", "grave already has an active concession")

func (s *Service) CreateConcession(ctx context.Context, req domain.CreateConcessionRequest) (domain.Concession, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Concession{}, err
	}

	var (
		concession domain.Concession
		outcome    occupancy.Outcome
	)
	err = s.inTx(ctx, "create_concession", parishID, func(tx *gorm.DB) error {
		var err error
		concession, err = s.validator.NewConcession(ctx, s.lookup(tx), parishID, req, s.policy.Get().DefaultCurrency)
		if err != nil {
			return err
		}

		grave, err := s.graves.FindForUpdate(ctx, tx, parishID, concession.GraveID)
		if err != nil {
			return err
		}
		if grave == nil {
			return domain.NewNotFound("grave", concession.GraveID)
		}
		if concession.IsActive() {
			busy, err := s.concessions.HasActiveForGrave(ctx, tx, parishID, grave.ID, "")
			if err != nil {
				return err
			}
			if busy {
				return errActiveConcessionExists
			}
		}

		now := s.clock.Now()
		concession.ID = newID()
		concession.CreatedAt = now
		concession.UpdatedAt = now
		if err := s.concessions.Insert(ctx, tx, &concession); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.NewConflict("contract_number", "contract number is already used in this parish")
			}
			return err
		}

		outcome, err = s.engine.Recompute(ctx, tx, parishID, grave.ID, occupancy.CauseConcessionCreated)
		return err
	})
	if err != nil {
		return domain.Concession{}, err
	}

	metadata := outcomeMetadata(outcome)
	metadata["contract_number"] = concession.ContractNumber
	s.record(ctx, parishID, "concession.created", "concession", concession.ID, metadata)
	return concession, nil
}

func (s *Service) GetConcession(ctx context.Context, id string) (domain.Concession, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Concession{}, err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return domain.Concession{}, err
	}

	var concession *domain.Concession
	err = s.inTx(ctx, "get_concession", parishID, func(tx *gorm.DB) error {
		var err error
		concession, err = s.concessions.FindByID(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if concession == nil {
			return domain.NewNotFound("concession", id)
		}
		return nil
	})
	if err != nil {
		return domain.Concession{}, err
	}
	return *concession, nil
}

func (s *Service) ListConcessions(ctx context.Context, req domain.ListConcessionsRequest) ([]domain.Concession, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return nil, err
	}
	req.GraveID = strings.ToLower(strings.TrimSpace(req.GraveID))
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var items []*domain.Concession
	err = s.inTx(ctx, "list_concessions", parishID, func(tx *gorm.DB) error {
		var err error
		items, err = s.concessions.List(ctx, tx, parishID, domain.ConcessionListFilter{
			GraveID: req.GraveID,
			Status:  domain.ConcessionStatus(req.Status),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

// UpdateConcession applies a partial update. New dates or currency must still
// cover the payments already recorded. The grave is recomputed since status or
// dates may have moved the concession in or out of active.
func (s *Service) UpdateConcession(ctx context.Context, id string, req domain.UpdateConcessionRequest) (domain.Concession, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Concession{}, err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return domain.Concession{}, err
	}

	var (
		updated domain.Concession
		outcome occupancy.Outcome
	)
	err = s.inTx(ctx, "update_concession", parishID, func(tx *gorm.DB) error {
		current, err := s.concessions.FindByID(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NewNotFound("concession", id)
		}
		grave, err := s.graves.FindForUpdate(ctx, tx, parishID, current.GraveID)
		if err != nil {
			return err
		}
		if grave == nil {
			return domain.NewNotFound("grave", current.GraveID)
		}

		updated, err = s.validator.ApplyConcessionUpdate(ctx, s.lookup(tx), *current, req)
		if err != nil {
			return err
		}
		if req.StartDate != nil || req.ExpiryDate != nil || req.Currency != nil {
			bounds, err := s.payments.Bounds(ctx, tx, parishID, updated.ID)
			if err != nil {
				return err
			}
			if err := validation.CheckPaymentsCovered(updated, bounds); err != nil {
				return err
			}
		}
		if updated.IsActive() {
			busy, err := s.concessions.HasActiveForGrave(ctx, tx, parishID, grave.ID, updated.ID)
			if err != nil {
				return err
			}
			if busy {
				return errActiveConcessionExists
			}
		}

		updated.UpdatedAt = s.clock.Now()
		if err := s.concessions.Update(ctx, tx, &updated); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.NewConflict("contract_number", "contract number is already used in this parish")
			}
			return err
		}

		outcome, err = s.engine.Recompute(ctx, tx, parishID, grave.ID, occupancy.CauseConcessionUpdated)
		return err
	})
	if err != nil {
		return domain.Concession{}, err
	}

	metadata := outcomeMetadata(outcome)
	metadata["concession_status"] = string(updated.Status)
	s.record(ctx, parishID, "concession.updated", "concession", updated.ID, metadata)
	return updated, nil
}

// DeleteConcession removes the concession with its payments and recomputes
// the grave in the same transaction. Deleting an absent concession reports
// NotFound and writes nothing.
func (s *Service) DeleteConcession(ctx context.Context, id string) (domain.Concession, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.Concession{}, err
	}
	id, err = validation.ID("id", id)
	if err != nil {
		return domain.Concession{}, err
	}

	var (
		concession *domain.Concession
		outcome    occupancy.Outcome
		payments   int64
	)
	err = s.inTx(ctx, "delete_concession", parishID, func(tx *gorm.DB) error {
		var err error
		concession, err = s.concessions.FindByID(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if concession == nil {
			return domain.NewNotFound("concession", id)
		}

		payments, err = s.payments.DeleteByConcession(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		deleted, err := s.concessions.Delete(ctx, tx, parishID, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.NewNotFound("concession", id)
		}

		outcome, err = s.engine.Recompute(ctx, tx, parishID, concession.GraveID, occupancy.CauseConcessionDeleted)
		return err
	})
	if err != nil {
		return domain.Concession{}, err
	}

	metadata := outcomeMetadata(outcome)
	metadata["payments_deleted"] = payments
	s.record(ctx, parishID, "concession.deleted", "concession", concession.ID, metadata)
	return *concession, nil
}

// ExpireConcessions expires the caller's parish.
func (s *Service) ExpireConcessions(ctx context.Context) (domain.ExpireConcessionsResult, error) {
	parishID, err := s.parishID(ctx)
	if err != nil {
		return domain.ExpireConcessionsResult{}, err
	}
	return s.ExpireDue(ctx, parishID)
}

// ExpireDue moves every active concession whose expiry date lies before today
// to expired. Each concession flips in its own transaction together with the
// recompute of its grave. An empty parishID sweeps every parish that has
// something to expire, one parish-scoped listing at a time.
func (s *Service) ExpireDue(ctx context.Context, parishID string) (domain.ExpireConcessionsResult, error) {
	today := calendar.FromTime(s.clock.Now())
	result := domain.ExpireConcessionsResult{GravesAffected: []string{}}

	parishes := []string{parishID}
	if parishID == "" {
		var err error
		parishes, err = s.concessions.ListExpiringParishes(ctx, s.db, today)
		if err != nil {
			return result, storeError("list_expiring_parishes", err)
		}
	}

	seen := map[string]struct{}{}
	for _, parish := range parishes {
		if err := s.expireParish(ctx, parish, today, &result, seen); err != nil {
			return result, err
		}
	}

	if result.Expired > 0 {
		s.log.Info("concessions expired",
			zap.String("parish_id", parishID),
			zap.Int("parishes", len(parishes)),
			zap.String("today", today.String()),
			zap.Int("expired", result.Expired),
			zap.Int("graves", len(result.GravesAffected)),
		)
	}
	return result, nil
}

func (s *Service) expireParish(ctx context.Context, parishID string, today calendar.Date, result *domain.ExpireConcessionsResult, seen map[string]struct{}) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var batch []*domain.Concession
		err := s.inTx(ctx, "list_expiring", parishID, func(tx *gorm.DB) error {
			var err error
			batch, err = s.concessions.ListExpiring(ctx, tx, parishID, today, expireBatchSize)
			return err
		})
		if err != nil {
			return err
		}

		for _, concession := range batch {
			expired, err := s.expireOne(ctx, concession)
			if err != nil {
				return err
			}
			if !expired {
				continue
			}
			result.Expired++
			if _, ok := seen[concession.GraveID]; !ok {
				seen[concession.GraveID] = struct{}{}
				result.GravesAffected = append(result.GravesAffected, concession.GraveID)
			}
		}
		if len(batch) < expireBatchSize {
			return nil
		}
	}
}

func (s *Service) expireOne(ctx context.Context, concession *domain.Concession) (bool, error) {
	var (
		expired bool
		outcome occupancy.Outcome
	)
	err := s.inTx(ctx, "expire_concession", concession.ParishID, func(tx *gorm.DB) error {
		if _, err := s.graves.FindForUpdate(ctx, tx, concession.ParishID, concession.GraveID); err != nil {
			return err
		}
		concession.UpdatedAt = s.clock.Now()
		rows, err := s.concessions.MarkExpired(ctx, tx, concession)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		expired = true
		outcome, err = s.engine.Recompute(ctx, tx, concession.ParishID, concession.GraveID, occupancy.CauseConcessionExpired)
		return err
	})
	if err != nil || !expired {
		return false, err
	}

	concession.Status = domain.ConcessionStatusExpired
	metadata := outcomeMetadata(outcome)
	metadata["expiry_date"] = concession.ExpiryDate.String()
	s.record(ctx, concession.ParishID, "concession.expired", "concession", concession.ID, metadata)
	return true, nil
}
