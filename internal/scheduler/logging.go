package scheduler

import (
	"context"
	"time"

	obscontext "github.com/smallbiznis/ecclesia/internal/observability/context"
	obslogger "github.com/smallbiznis/ecclesia/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ecclesia/internal/observability/metrics"
	"go.uber.org/zap"
)

// sweepRun is the bookkeeping for one job execution. It rides on the context
// so a job invoked directly and a job invoked through runJob log once.
type sweepRun struct {
	job       string
	id        string
	startedAt time.Time
	expired   int
	failures  int
}

type sweepRunKey struct{}

func runFromContext(ctx context.Context) *sweepRun {
	run, _ := ctx.Value(sweepRunKey{}).(*sweepRun)
	return run
}

// begin attaches a run to ctx unless one is already there. The returned
// finish func is a no-op for nested calls.
func (s *Scheduler) begin(ctx context.Context, job string) (context.Context, *sweepRun, func()) {
	if run := runFromContext(ctx); run != nil {
		return ctx, run, func() {}
	}
	run := &sweepRun{job: job, id: s.genID.Generate().String(), startedAt: s.clock.Now()}
	ctx = context.WithValue(ctx, sweepRunKey{}, run)
	ctx = obscontext.WithActor(ctx, systemActor)
	ctx = obscontext.WithRequestID(ctx, run.id)

	s.logger(ctx).Info("scheduler.job.start", zap.String("job", job))
	return ctx, run, func() { s.finish(ctx, run) }
}

func (s *Scheduler) finish(ctx context.Context, run *sweepRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("expired", run.expired),
		zap.Int("failures", run.failures),
	}
	if run.failures > 0 {
		s.logger(ctx).Warn("scheduler.job.finish", fields...)
		return
	}
	s.logger(ctx).Info("scheduler.job.finish", fields...)
}

// fail logs err once per run with its classification.
func (s *Scheduler) fail(ctx context.Context, run *sweepRun, msg string, err error, fields ...zap.Field) {
	run.failures++
	s.logger(ctx).Error(msg, append([]zap.Field{
		zap.String("job", run.job),
		zap.String("error_type", obsmetrics.ClassifySchedulerJobReason(err)),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
		zap.Error(err),
	}, fields...)...)
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
