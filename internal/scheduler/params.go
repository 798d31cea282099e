package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/hochfrequenz/upgrade-scheduler/internal/batch"
	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// ErrInvalidParams wraps every run parameter validation failure
var ErrInvalidParams = errors.New("invalid run parameters")

// ModeParams are the capacity and calendar settings of one mode
type ModeParams struct {
	DailyLimit  int
	AllowedDays calendar.Weekdays
}

// Params configure a scheduling run
type Params struct {
	Dev       ModeParams
	Prod      ModeParams
	Holidays  []time.Time
	SortBy    domain.SortKey
	StartDate time.Time

	// MaxLookaheadDays bounds every forward batch search
	MaxLookaheadDays int
	// ReconcileSweeps repeats both reconciliation passes until nothing moves,
	// at most this many times. One keeps the single-sweep behavior.
	ReconcileSweeps int
}

// Validate rejects parameters under which packing could not terminate
func (p Params) Validate() error {
	if err := p.Policies().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if _, err := domain.ParseSortKey(string(p.SortBy)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidParams)
	}
	if p.MaxLookaheadDays < 0 {
		return fmt.Errorf("%w: max lookahead days must not be negative", ErrInvalidParams)
	}
	return nil
}

// Policies derives the per-mode batch rules
func (p Params) Policies() batch.Policies {
	return batch.Policies{
		Dev: batch.Rules{
			DailyLimit: p.Dev.DailyLimit,
			Calendar:   calendar.NewPolicy(p.Dev.AllowedDays, p.Holidays),
		},
		Prod: batch.Rules{
			DailyLimit: p.Prod.DailyLimit,
			Calendar:   calendar.NewPolicy(p.Prod.AllowedDays, p.Holidays),
		},
	}
}

func (p Params) sweeps() int {
	if p.ReconcileSweeps < 1 {
		return 1
	}
	return p.ReconcileSweeps
}
