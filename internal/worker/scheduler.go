package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbroker/internal/logging"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the evaluator every minute
const DefaultSchedule = "@every 1m"

// Runner is a job the scheduler triggers
type Runner interface {
	Run(ctx context.Context) (*RunResult, error)
}

// Scheduler triggers a Runner on a cron schedule. A run still in progress
// when the next tick arrives causes that tick to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	schedule string
	timeout  time.Duration
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// NewScheduler validates the schedule and registers the runner
func NewScheduler(runner Runner, schedule string, timeout time.Duration) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if timeout <= 0 {
		timeout = 50 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:   runner,
		schedule: schedule,
		timeout:  timeout,
		baseCtx:  ctx,
		cancel:   cancel,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.timeout)
	defer cancel()
	ctx = logging.WithLogger(ctx, logging.GetGlobalLogger().WithField("schedule", s.schedule))

	if _, err := s.runner.Run(ctx); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Scheduled run finished with errors")
	}
}

// RunNow triggers one run outside the schedule
func (s *Scheduler) RunNow() {
	s.tick()
}

// Start begins scheduling in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	logging.Infof("Scheduler started with schedule %s", s.schedule)
}

// Stop cancels any in-flight run and waits for it to return or for ctx to
// expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		logging.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler did not stop in time: %w", ctx.Err())
	}
}
