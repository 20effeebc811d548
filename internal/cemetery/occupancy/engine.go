package occupancy

import (
	"context"

	"github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/clock"
	obsmetrics "github.com/smallbiznis/ecclesia/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Outcome describes what a recompute did to one grave.
type Outcome struct {
	GraveID  string             `json:"grave_id"`
	Previous domain.GraveStatus `json:"previous"`
	Status   domain.GraveStatus `json:"status"`
	Changed  bool               `json:"changed"`
	// Skipped is set when the grave is under maintenance and was left alone.
	Skipped bool `json:"skipped"`
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	Graves      domain.GraveRepository
	Concessions domain.ConcessionRepository
	Burials     domain.BurialRepository
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Engine struct {
	log         *zap.Logger
	clock       clock.Clock
	graves      domain.GraveRepository
	concessions domain.ConcessionRepository
	burials     domain.BurialRepository
	metrics     *obsmetrics.Metrics
}

func NewEngine(p Params) *Engine {
	return &Engine{
		log:         p.Log.Named("occupancy.engine"),
		clock:       p.Clock,
		graves:      p.Graves,
		concessions: p.Concessions,
		burials:     p.Burials,
		metrics:     p.Metrics,
	}
}

// Recompute derives the grave status from the rows visible to tx and writes
// it back. It must run inside the transaction of the mutation that caused it;
// the grave row is locked first so concurrent mutations of the same grave
// serialize on it.
func (e *Engine) Recompute(ctx context.Context, tx *gorm.DB, parishID, graveID string, cause Cause) (Outcome, error) {
	grave, err := e.graves.FindForUpdate(ctx, tx, parishID, graveID)
	if err != nil {
		return Outcome{}, err
	}
	if grave == nil {
		return Outcome{}, domain.NewNotFound("grave", graveID)
	}

	outcome := Outcome{GraveID: grave.ID, Previous: grave.Status, Status: grave.Status}
	if grave.Status == domain.GraveStatusMaintenance && !cause.overridesMaintenance() {
		outcome.Skipped = true
		e.record(ctx, cause, "skipped")
		return outcome, nil
	}

	burials, err := e.burials.CountForGrave(ctx, tx, parishID, grave.ID)
	if err != nil {
		return Outcome{}, err
	}
	hasActive := false
	if burials == 0 {
		hasActive, err = e.concessions.HasActiveForGrave(ctx, tx, parishID, grave.ID, "")
		if err != nil {
			return Outcome{}, err
		}
	}

	next := Decide(burials > 0, hasActive)
	outcome.Status = next
	if next == grave.Status {
		e.record(ctx, cause, "unchanged")
		return outcome, nil
	}

	grave.Status = next
	grave.UpdatedAt = e.clock.Now()
	if err := e.graves.UpdateStatus(ctx, tx, grave); err != nil {
		return Outcome{}, err
	}
	outcome.Changed = true
	e.record(ctx, cause, string(next))

	e.log.Debug("grave status recomputed",
		zap.String("grave_id", grave.ID),
		zap.String("cause", string(cause)),
		zap.String("from", string(outcome.Previous)),
		zap.String("to", string(next)),
	)
	return outcome, nil
}

func (e *Engine) record(ctx context.Context, cause Cause, outcome string) {
	e.metrics.RecordRecompute(ctx, string(cause), outcome)
}
