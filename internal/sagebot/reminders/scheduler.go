package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mlemos/sagebot/internal/sagebot/observability"
)

// DefaultSchedule runs a sweep once per minute, matching the resolution of
// reminder due times.
const DefaultSchedule = "* * * * *"

// Scheduler runs the sweep on a cron schedule.
type Scheduler struct {
	sweeper  *Sweeper
	schedule string
	cron     *cron.Cron

	// running prevents a second sweep from starting while one is still in
	// flight; a slow channel must not stack concurrent batches.
	mu      sync.Mutex
	running bool
}

// NewScheduler wires a Scheduler around sweeper. schedule is a standard
// five-field cron expression; empty falls back to DefaultSchedule.
func NewScheduler(sweeper *Sweeper, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{sweeper: sweeper, schedule: schedule}
}

// Start registers the sweep and begins firing it. The returned error is only
// for an invalid cron expression.
func (s *Scheduler) Start(ctx context.Context) error {
	log := observability.WithTrace(ctx)

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	log.Info("reminder scheduler started", "schedule", s.schedule)
	return nil
}

// Stop halts scheduling and waits briefly for an in-flight sweep.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(10 * time.Second):
	}
}

func (s *Scheduler) run(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log := observability.WithTrace(ctx)
	if _, err := s.sweeper.Sweep(ctx); err != nil {
		log.Error("reminder sweep failed", "err", err)
	}
}
