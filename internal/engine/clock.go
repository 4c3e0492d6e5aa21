package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// MonthsPerQuarter and MonthsPerYear define when the clock's slower
// callbacks fire relative to the month counter.
const (
	MonthsPerQuarter = 3
	MonthsPerYear    = 12
)

// Clock drives a run forward one month at a time.
type Clock struct {
	Month    int           // Last month completed
	Limit    int           // Stop once Month reaches Limit; 0 runs until stopped
	Speed    float64       // Multiplier: 1.0 = one month per Interval, 0 = paused
	Interval time.Duration // Base month interval; 0 runs months back to back

	// OnMonth advances the run. An error stops the clock.
	OnMonth   func(ctx context.Context, month int) error
	OnQuarter func(month int)
	OnYear    func(month int)

	running atomic.Bool
}

// NewClock returns a clock positioned at month start.
func NewClock(start int) *Clock {
	return &Clock{
		Month: start,
		Speed: 1.0,
	}
}

// Running reports whether Run is in progress.
func (c *Clock) Running() bool { return c.running.Load() }

// Run advances months until the limit is reached, Stop is called, the
// context is cancelled, or OnMonth fails.
func (c *Clock) Run(ctx context.Context) error {
	c.running.Store(true)
	defer c.running.Store(false)
	slog.Info("simulation clock started", "month", c.Month, "limit", c.Limit, "speed", c.Speed)

	for c.running.Load() {
		if c.Limit > 0 && c.Month >= c.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Speed <= 0 {
			// Paused.
			if err := sleep(ctx, 100*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		if err := c.step(ctx); err != nil {
			slog.Warn("simulation clock halted", "month", c.Month, "error", err)
			return err
		}

		if c.Interval > 0 {
			target := time.Duration(float64(c.Interval) / c.Speed)
			if elapsed := time.Since(start); elapsed < target {
				if err := sleep(ctx, target-elapsed); err != nil {
					return err
				}
			}
		}
	}

	slog.Info("simulation clock stopped", "month", c.Month)
	return nil
}

// Stop halts the loop after the current month.
func (c *Clock) Stop() {
	c.running.Store(false)
}

func (c *Clock) step(ctx context.Context) error {
	if c.OnMonth != nil {
		if err := c.OnMonth(ctx, c.Month); err != nil {
			return err
		}
	}
	c.Month++

	if c.Month%MonthsPerQuarter == 0 && c.OnQuarter != nil {
		c.OnQuarter(c.Month)
	}
	if c.Month%MonthsPerYear == 0 && c.OnYear != nil {
		c.OnYear(c.Month)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Calendar returns a human-readable position for a month number.
func Calendar(month int) string {
	return fmt.Sprintf("Year %d, Month %d", month/MonthsPerYear+1, month%MonthsPerYear+1)
}
