package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/clock"
	obsmetrics "github.com/smallbiznis/ecclesia/internal/observability/metrics"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExpirer struct {
	mu     sync.Mutex
	calls  []string
	actors []string
	result cemeterydomain.ExpireConcessionsResult
	err    error
}

func (f *fakeExpirer) ExpireDue(ctx context.Context, parishID string) (cemeterydomain.ExpireConcessionsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, parishID)
	f.actors = append(f.actors, orgcontext.ActorFromContext(ctx))
	return f.result, f.err
}

type fakeLocker struct {
	held       bool
	err        error
	acquired   []string
	released   []string
	releaseCtx context.Context
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if l.held {
		return "", false, nil
	}
	l.acquired = append(l.acquired, key)
	return "token-1", true, nil
}

func (l *fakeLocker) Release(ctx context.Context, key, token string) error {
	l.released = append(l.released, key+"/"+token)
	l.releaseCtx = ctx
	return nil
}

func newTestScheduler(t *testing.T, expirer ConcessionExpirer) (*Scheduler, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	t.Cleanup(swapPrometheusRegistry(registry))

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "ecclesia",
		Environment: "test",
	})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	s, err := New(Params{
		Log:     zap.NewNop(),
		Expirer: expirer,
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	return s, registry
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{RunTimeout: 20 * time.Minute}.withDefaults()
	require.Equal(t, time.Hour, cfg.ExpiryInterval)
	require.Equal(t, 20*time.Minute, cfg.RunTimeout)
	require.Equal(t, 20*time.Minute, cfg.LockTTL, "lock must outlive the run")
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	s, registry := newTestScheduler(t, &fakeExpirer{})

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service": "ecclesia",
		"env":     "test",
		"job":     "timeout_job",
	}
	if got := getCounterValue(t, registry, "ecclesia_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service": "ecclesia",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "ecclesia_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunJobRecoversPanic(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeExpirer{})

	err := s.runJob(context.Background(), "panic_job", time.Second, func(context.Context) error {
		panic("boom")
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "panic_job: panic: boom")
}

func TestRunOnceExpiresAcrossParishesAsSystem(t *testing.T) {
	expirer := &fakeExpirer{result: cemeterydomain.ExpireConcessionsResult{
		Expired:        3,
		GravesAffected: []string{"g-1", "g-2"},
	}}
	s, registry := newTestScheduler(t, expirer)

	require.NoError(t, s.RunOnce(context.Background()))

	require.Equal(t, []string{""}, expirer.calls)
	require.Equal(t, []string{"system"}, expirer.actors)

	runLabels := map[string]string{"service": "ecclesia", "env": "test", "job": JobExpireConcessions}
	require.Equal(t, float64(1), getCounterValue(t, registry, "ecclesia_scheduler_job_runs_total", runLabels))

	batchLabels := map[string]string{
		"service":  "ecclesia",
		"env":      "test",
		"job":      JobExpireConcessions,
		"resource": "concession",
	}
	require.Equal(t, float64(3), getCounterValue(t, registry, "ecclesia_scheduler_batch_processed_total", batchLabels))
}

func TestRunOnceReturnsExpirerError(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("database unavailable")}
	s, registry := newTestScheduler(t, expirer)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), JobExpireConcessions)

	errorLabels := map[string]string{
		"service": "ecclesia",
		"env":     "test",
		"job":     JobExpireConcessions,
		"reason":  obsmetrics.SchedulerJobReasonUnknown,
	}
	require.Equal(t, float64(1), getCounterValue(t, registry, "ecclesia_scheduler_job_errors_total", errorLabels))
}

func TestExpireJobHoldsAndReleasesLock(t *testing.T) {
	expirer := &fakeExpirer{}
	s, _ := newTestScheduler(t, expirer)
	locker := &fakeLocker{}
	s.locker = locker

	require.NoError(t, s.RunOnce(context.Background()))

	require.Equal(t, []string{lockKeyExpireConcessions}, locker.acquired)
	require.Equal(t, []string{lockKeyExpireConcessions + "/token-1"}, locker.released)
	require.NoError(t, locker.releaseCtx.Err())
	require.Len(t, expirer.calls, 1)
}

func TestExpireJobSkipsWhenLockHeld(t *testing.T) {
	expirer := &fakeExpirer{}
	s, _ := newTestScheduler(t, expirer)
	s.locker = &fakeLocker{held: true}

	require.NoError(t, s.RunOnce(context.Background()))
	require.Empty(t, expirer.calls)
}

func TestExpireJobFailsOnLockError(t *testing.T) {
	expirer := &fakeExpirer{}
	s, _ := newTestScheduler(t, expirer)
	s.locker = &fakeLocker{err: errors.New("redis down")}

	err := s.RunOnce(context.Background())
	require.ErrorContains(t, err, "redis down")
	require.Empty(t, expirer.calls)
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	expirer := &fakeExpirer{}
	s, _ := newTestScheduler(t, expirer)
	s.cfg.ExpiryInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		expirer.mu.Lock()
		defer expirer.mu.Unlock()
		return len(expirer.calls) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunForever did not stop after cancel")
	}
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
