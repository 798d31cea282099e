package batch

import (
	"fmt"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// Rules bound the batches of one mode
type Rules struct {
	DailyLimit int
	Calendar   calendar.Policy
}

// Validate rejects rules under which a batch search cannot terminate
func (r Rules) Validate() error {
	if r.DailyLimit <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, r.DailyLimit)
	}
	return r.Calendar.Validate()
}

// Policies holds the rules per mode
type Policies struct {
	Dev  Rules
	Prod Rules
}

// For returns the rules that apply to mode
func (p Policies) For(mode domain.Mode) (Rules, error) {
	switch mode {
	case domain.ModeDev:
		return p.Dev, nil
	case domain.ModeProd:
		return p.Prod, nil
	default:
		return Rules{}, fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}
}

// Validate checks the rules of every mode
func (p Policies) Validate() error {
	for _, mode := range domain.Modes {
		rules, _ := p.For(mode)
		if err := rules.Validate(); err != nil {
			return fmt.Errorf("%s rules: %w", mode, err)
		}
	}
	return nil
}
