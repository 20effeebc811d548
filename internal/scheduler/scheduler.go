package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/clock"
	obsmetrics "github.com/smallbiznis/ecclesia/internal/observability/metrics"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
	"github.com/smallbiznis/ecclesia/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobExpireConcessions = "expire_concessions"

	lockKeyExpireConcessions = "scheduler:lock:expire_concessions"

	systemActor = "system"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// ConcessionExpirer runs the expiry sweep. An empty parishID covers every parish.
type ConcessionExpirer interface {
	ExpireDue(ctx context.Context, parishID string) (cemeterydomain.ExpireConcessionsResult, error)
}

// JobLocker keeps replicas from running the same job concurrently.
type JobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Expirer ConcessionExpirer
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  Config            `optional:"true"`
	Locker  *ratelimit.Locker `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	expirer ConcessionExpirer
	locker  JobLocker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Expirer == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		expirer: p.Expirer,
	}
	if p.Locker != nil {
		s.locker = p.Locker
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) (err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = orgcontext.WithActor(ctx, systemActor)
	ctx, run, done := s.begin(ctx, name)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", name, r)
			schedMetrics.IncJobError(name, err)
			s.logger(ctx).Error("scheduler job panicked", zap.String("job", name), zap.Any("panic", r))
		}
	}()

	err = fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err != nil && run.failures == 0 {
		run.failures++
	}
	done()
	if err == nil {
		return nil
	}

	// a deadline is a soft stop: the next tick picks up the remainder
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, JobExpireConcessions, s.cfg.RunTimeout, s.ExpireConcessionsJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ExpiryInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()
	schedMetrics := obsmetrics.Scheduler()

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			schedMetrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.ExpiryInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ExpireConcessionsJob moves lapsed concessions to expired across all parishes.
func (s *Scheduler) ExpireConcessionsJob(ctx context.Context) error {
	ctx, run, done := s.begin(ctx, JobExpireConcessions)
	defer done()

	if s.locker != nil {
		token, acquired, err := s.locker.TryLock(ctx, lockKeyExpireConcessions, s.cfg.LockTTL)
		if err != nil {
			s.fail(ctx, run, "scheduler.lock.failed", err)
			return err
		}
		if !acquired {
			s.logger(ctx).Debug("scheduler.job.skipped", zap.String("job", JobExpireConcessions), zap.String("reason", "locked"))
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), lockKeyExpireConcessions, token); err != nil {
				s.logger(ctx).Warn("scheduler.lock.release_failed", zap.String("job", JobExpireConcessions), zap.Error(err))
			}
		}()
	}

	result, err := s.expirer.ExpireDue(ctx, "")
	run.expired += result.Expired
	obsmetrics.Scheduler().AddBatchProcessed(JobExpireConcessions, "concession", result.Expired)
	if err != nil {
		s.fail(ctx, run, "scheduler.expire_concessions.failed", err,
			zap.Int("expired_before_error", result.Expired),
		)
		return err
	}
	if result.Expired > 0 {
		s.logger(ctx).Info("scheduler.concessions.expired",
			zap.Int("expired", result.Expired),
			zap.Int("graves_affected", len(result.GravesAffected)),
		)
	}
	return nil
}
