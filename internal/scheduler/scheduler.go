// Package scheduler advances autopilot runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Advancer advances every run that has autopilot enabled.
type Advancer interface {
	AdvanceAutopilot(ctx context.Context) (int, error)
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Advancer Advancer
	Ctx      context.Context

	// Timeout bounds a single autopilot sweep. Zero means no limit.
	Timeout time.Duration

	mu        sync.Mutex
	lastSweep time.Time
	advanced  int
}

// NewScheduler creates a scheduler using six-field cron expressions
// (seconds first). Overlapping runs of the same task are skipped.
func NewScheduler(ctx context.Context, adv Advancer) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		Advancer: adv,
		Ctx:      ctx,
	}
}

// RegisterAutopilot schedules the autopilot sweep.
func (s *Scheduler) RegisterAutopilot(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.autopilotTask); err != nil {
		return fmt.Errorf("register autopilot task: %w", err)
	}
	return nil
}

// RegisterFunc schedules a named housekeeping task.
func (s *Scheduler) RegisterFunc(spec, name string, fn func()) error {
	if _, err := s.Cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started", "tasks", len(s.Cron.Entries()))
}

// Stop stops the scheduler and waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunNow runs the autopilot sweep immediately.
func (s *Scheduler) RunNow() {
	s.autopilotTask()
}

// LastSweep reports when the autopilot last ran and how many runs it
// advanced.
func (s *Scheduler) LastSweep() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSweep, s.advanced
}

func (s *Scheduler) autopilotTask() {
	ctx := s.Ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	start := time.Now()
	n, err := s.Advancer.AdvanceAutopilot(ctx)

	s.mu.Lock()
	s.lastSweep = start
	s.advanced = n
	s.mu.Unlock()

	if err != nil {
		slog.Error("autopilot sweep failed", "advanced", n, "error", err)
		return
	}
	slog.Info("autopilot sweep complete", "advanced", n, "elapsed", time.Since(start))
}
