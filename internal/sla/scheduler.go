package sla

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/robfig/cron/v3"

	"github.com/clinicorp/n0-error-tracker/internal/metrics"
)

// Scheduler owns the sweep's lifecycle: one cycle at Start, then one per
// cron tick. A tick that fires while a cycle is still running is skipped.
type Scheduler struct {
	sweeper    *Sweeper
	cronEngine *cron.Cron
	spec       string
	timeout    time.Duration

	running   atomic.Bool
	lastSweep atomic.Pointer[time.Time]
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

func NewScheduler(sweeper *Sweeper, spec string) *Scheduler {
	if spec == "" {
		spec = "@every 5m"
	}
	logger := cronLogger{}
	return &Scheduler{
		sweeper: sweeper,
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		spec:    spec,
		timeout: 4 * time.Minute,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.spec, func() { s.Trigger(context.Background()) }); err != nil {
		return fmt.Errorf("invalid SLA sweep schedule %q: %w", s.spec, err)
	}
	s.cronEngine.Start()
	slog.Info("sla scheduler started", "spec", s.spec)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Trigger(context.Background())
	}()
	return nil
}

// Trigger runs one cycle unless another is in flight. It reports whether
// the cycle ran.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		metrics.SweepCyclesTotal.WithLabelValues("skipped").Inc()
		slog.Warn("sla sweep skipped: previous cycle still running")
		return false
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	s.runCycle(ctx)
	return true
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sla sweep panic: %v", r)
			slog.Error("sla sweep cycle panicked", "action", "sla_sweep", "error", err)
			sentry.CaptureException(err)
		}
	}()

	res := s.sweeper.RunCycle(ctx)

	elapsed := time.Since(start)
	metrics.SweepCyclesTotal.WithLabelValues("run").Inc()
	metrics.SweepCycleDuration.Observe(elapsed.Seconds())
	finished := s.sweeper.now().UTC()
	s.lastSweep.Store(&finished)

	slog.Info("sla sweep cycle finished",
		"action", "sla_sweep",
		"critical_notified", res.CriticalNotified,
		"nearing_notified", res.NearingNotified,
		"expired", res.Expired,
		"expired_notified", res.ExpiredNotified,
		"failed_checks", len(res.Failures),
		"latency_ms", float64(elapsed.Microseconds())/1000,
	)
}

// LastSweepAt is nil until the first cycle completes.
func (s *Scheduler) LastSweepAt() *time.Time {
	return s.lastSweep.Load()
}

// Stop prevents new cycles and waits for one in flight to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		slog.Info("stopping sla scheduler")
		ctx := s.cronEngine.Stop()
		<-ctx.Done()
		s.wg.Wait()
		slog.Info("sla scheduler stopped")
	})
}

// cronLogger routes robfig/cron's logging into slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
