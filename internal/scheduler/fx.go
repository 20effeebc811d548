package scheduler

import (
	"context"

	cemeteryservice "github.com/smallbiznis/ecclesia/internal/cemetery/service"
	"github.com/smallbiznis/ecclesia/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(
		ProvideConfig,
		func(svc *cemeteryservice.Service) ConcessionExpirer { return svc },
		New,
	),
	fx.Invoke(registerLoop),
)

// registerLoop runs the expiry sweep for the life of the app when enabled.
// Stop cancels the loop and waits for an in-flight sweep to return.
func registerLoop(lc fx.Lifecycle, cfg config.Config, sched *Scheduler, log *zap.Logger) {
	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(stopped)
				sched.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-stopped:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
