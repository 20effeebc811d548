package service

import (
	"context"

	"github.com/google/uuid"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/cemetery/occupancy"
	"github.com/smallbiznis/ecclesia/internal/cemetery/validation"
	"github.com/smallbiznis/ecclesia/internal/clock"
	"github.com/smallbiznis/ecclesia/internal/config"
	ledgerdomain "github.com/smallbiznis/ecclesia/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ecclesia/internal/observability/metrics"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
	pkgdb "github.com/smallbiznis/ecclesia/pkg/db"
	"github.com/smallbiznis/ecclesia/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Validator   *validation.Validator
	Engine      *occupancy.Engine
	Policy      *config.CemeteryPolicyHolder
	Layout      domain.LayoutRepository
	Graves      domain.GraveRepository
	Concessions domain.ConcessionRepository
	Burials     domain.BurialRepository
	Payments    domain.PaymentRepository
	Occupancy   domain.OccupancyRepository
	References  domain.ReferenceChecker
	Ledger      ledgerdomain.Service `optional:"true"`
	Audit       auditdomain.Service  `optional:"true"`
	Metrics     *obsmetrics.Metrics  `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	validator   *validation.Validator
	engine      *occupancy.Engine
	policy      *config.CemeteryPolicyHolder
	layout      domain.LayoutRepository
	graves      domain.GraveRepository
	concessions domain.ConcessionRepository
	burials     domain.BurialRepository
	payments    domain.PaymentRepository
	occupancy   domain.OccupancyRepository
	references  domain.ReferenceChecker
	ledger      ledgerdomain.Service
	audit       auditdomain.Service
	metrics     *obsmetrics.Metrics
}

// NewService returns the concrete type; the scheduler needs ExpireDue, which
// is not part of the request-facing interface.
func NewService(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("cemetery.service"),
		clock:       p.Clock,
		validator:   p.Validator,
		engine:      p.Engine,
		policy:      p.Policy,
		layout:      p.Layout,
		graves:      p.Graves,
		concessions: p.Concessions,
		burials:     p.Burials,
		payments:    p.Payments,
		occupancy:   p.Occupancy,
		references:  p.References,
		ledger:      p.Ledger,
		audit:       p.Audit,
		metrics:     p.Metrics,
	}
}

func (s *Service) parishID(ctx context.Context) (string, error) {
	parishID, ok := orgcontext.ParishIDFromContext(ctx)
	if !ok {
		return "", domain.NewValidationError("parish_id", "required", "is required")
	}
	return parishID, nil
}

// inTx runs fn in one transaction scoped to the parish. Domain errors pass
// through untouched; anything the store raises becomes a TransactionError.
func (s *Service) inTx(ctx context.Context, op, parishID string, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithParish(tx, parishID); err != nil {
			return err
		}
		return fn(tx)
	})
	return storeError(op, err)
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch domain.Kind(err) {
	case domain.KindValidation, domain.KindNotFound, domain.KindConflict, domain.KindTransaction:
		return err
	}
	if pkgdb.IsDuplicateKeyErr(err) {
		return domain.NewConflict("", "resource already exists")
	}
	if pkgdb.IsForeignKeyErr(err) {
		return domain.NewConflict("", "resource is still referenced")
	}
	return &domain.TransactionError{Op: op, Err: err, Retryable: pkgdb.IsRetryableTxErr(err)}
}

// lookup binds the validation layer's existence checks to a transaction.
type lookup struct {
	tx          *gorm.DB
	references  domain.ReferenceChecker
	concessions domain.ConcessionRepository
}

func (s *Service) lookup(tx *gorm.DB) validation.Lookup {
	return lookup{tx: tx, references: s.references, concessions: s.concessions}
}

func (l lookup) ClientExists(ctx context.Context, parishID, clientID string) (bool, error) {
	return l.references.ClientExists(ctx, l.tx, parishID, clientID)
}

func (l lookup) ContractNumberTaken(ctx context.Context, parishID, contractNumber, excludeID string) (bool, error) {
	return l.concessions.ContractNumberTaken(ctx, l.tx, parishID, contractNumber, excludeID)
}

// record writes an audit entry after the mutation committed. Audit failures
// are logged and never fail the request.
func (s *Service) record(ctx context.Context, parishID, action, targetType, targetID string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, auditdomain.Entry{
		ParishID:   parishID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("failed to record audit entry",
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
	}
}

func outcomeMetadata(outcome occupancy.Outcome) map[string]any {
	return map[string]any{
		"grave_id":        outcome.GraveID,
		"grave_status":    string(outcome.Status),
		"previous_status": string(outcome.Previous),
		"status_changed":  outcome.Changed,
	}
}

func newID() string {
	return uuid.NewString()
}
