// Package trigger fires periodic rescheduling from a cron expression.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron parses a five field cron expression or a descriptor such as "@daily"
func ParseCron(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

// Cron calls a function at every activation of a cron schedule
type Cron struct {
	expr     string
	schedule cron.Schedule
	logger   *zap.Logger

	mu      sync.RWMutex
	lastRun time.Time
}

// NewCron validates expr
func NewCron(expr string, logger *zap.Logger) (*Cron, error) {
	if expr == "" {
		return nil, fmt.Errorf("cron expression is required")
	}
	sched, err := ParseCron(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cron{expr: expr, schedule: sched, logger: logger}, nil
}

// Next returns the first activation after t
func (c *Cron) Next(t time.Time) time.Time {
	return c.schedule.Next(t)
}

// LastRun returns when fn last started, or the zero time
func (c *Cron) LastRun() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRun
}

// Run blocks until ctx is done, calling fn at every activation. Activations
// missed while fn is running are skipped.
func (c *Cron) Run(ctx context.Context, fn func(context.Context)) {
	for {
		next := c.Next(time.Now())
		c.logger.Debug("next scheduled refresh", zap.String("cron", c.expr), zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		c.mu.Lock()
		c.lastRun = time.Now()
		c.mu.Unlock()
		fn(ctx)
	}
}
