package batch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// DefaultLookaheadDays bounds the forward search for a batch with room
const DefaultLookaheadDays = 366

// Registry owns every batch of a run and the instance -> batch index.
// It is not safe for concurrent use.
type Registry struct {
	batches   map[string]*Batch // date key -> batch
	index     map[string]string // instance id -> date key
	lookahead int
	logger    *zap.Logger
}

// NewRegistry creates an empty registry. A lookahead below one falls back to
// DefaultLookaheadDays.
func NewRegistry(logger *zap.Logger, lookaheadDays int) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}
	return &Registry{
		batches:   make(map[string]*Batch),
		index:     make(map[string]string),
		lookahead: lookaheadDays,
		logger:    logger,
	}
}

// Batch returns the batch currently holding instanceID
func (r *Registry) Batch(instanceID string) (*Batch, bool) {
	key, ok := r.index[instanceID]
	if !ok {
		return nil, false
	}
	return r.batches[key], true
}

// CreateOrReuse returns the batch at date if it still has room under limit,
// creating it when missing. The limit is the caller's, not the one recorded
// at creation, so callers with different limits may disagree on "full".
func (r *Registry) CreateOrReuse(date time.Time, limit int) (*Batch, bool) {
	date = calendar.Date(date)
	key := calendar.Key(date)
	if b, ok := r.batches[key]; ok {
		if b.Size() < limit {
			return b, true
		}
		return nil, false
	}

	b := &Batch{date: date, limit: limit}
	r.batches[key] = b
	return b, true
}

// FindEligible walks forward from start to the first eligible date whose
// batch has room under limit.
func (r *Registry) FindEligible(start time.Time, limit int, policy calendar.Policy) (*Batch, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}

	date := calendar.Date(start)
	horizon := calendar.AddDays(date, r.lookahead)
	for {
		next, err := policy.Next(date)
		if err != nil {
			return nil, err
		}
		if next.After(horizon) {
			return nil, fmt.Errorf("%w: nothing free between %s and %s (limit %d)",
				ErrSearchExhausted, calendar.Key(start), calendar.Key(horizon), limit)
		}
		if b, ok := r.CreateOrReuse(next, limit); ok {
			return b, nil
		}
		date = calendar.AddDays(next, 1)
	}
}

// Place appends inst to b and indexes it
func (r *Registry) Place(inst domain.Instance, b *Batch) error {
	if r.batches[b.Key()] != b {
		return fmt.Errorf("place %s on %s: %w", inst.ID, b.Key(), ErrForeignBatch)
	}
	if key, ok := r.index[inst.ID]; ok {
		return fmt.Errorf("place %s on %s: %w on %s", inst.ID, b.Key(), ErrAlreadyScheduled, key)
	}
	b.add(inst)
	r.index[inst.ID] = b.Key()
	return nil
}

// Remove takes instanceID out of b. A missing instance is logged and
// reported with ok=false.
func (r *Registry) Remove(instanceID string, b *Batch) (domain.Instance, bool) {
	inst, ok := b.remove(instanceID)
	if !ok {
		r.logger.Warn("cannot find instance in batch",
			zap.String("instance", instanceID),
			zap.String("batch", b.Key()),
			zap.Error(ErrInstanceNotFound))
		return domain.Instance{}, false
	}
	delete(r.index, instanceID)
	return inst, true
}

// Exchange swaps the batches of idX (in bx) and idY (in by). Batch sizes are
// unchanged. A side that is missing from its batch is skipped.
func (r *Registry) Exchange(bx *Batch, idX string, by *Batch, idY string) {
	instX, okX := r.Remove(idX, bx)
	instY, okY := r.Remove(idY, by)
	if okY {
		bx.add(instY)
		r.index[instY.ID] = bx.Key()
	}
	if okX {
		by.add(instX)
		r.index[instX.ID] = by.Key()
	}
	r.logger.Debug("exchanged instances",
		zap.String("first", idX), zap.String("first_to", by.Key()),
		zap.String("second", idY), zap.String("second_to", bx.Key()))
}

// Postpone moves instanceID to the first batch with room after its current
// date, using the rules of its mode.
func (r *Registry) Postpone(instanceID string, policies Policies) (*Batch, error) {
	b, ok := r.Batch(instanceID)
	if !ok {
		return nil, fmt.Errorf("postpone %s: %w", instanceID, ErrInstanceNotFound)
	}
	return r.PostponeFrom(b.Date(), instanceID, policies)
}

// PostponeFrom moves instanceID to the first batch with room after date,
// using the rules of its mode. On error the instance stays where it was,
// at its old position in the batch.
func (r *Registry) PostponeFrom(date time.Time, instanceID string, policies Policies) (*Batch, error) {
	from, ok := r.Batch(instanceID)
	if !ok {
		return nil, fmt.Errorf("postpone %s: %w", instanceID, ErrInstanceNotFound)
	}
	idx := from.indexOf(instanceID)
	inst, ok := r.Remove(instanceID, from)
	if !ok {
		return nil, fmt.Errorf("postpone %s: %w", instanceID, ErrInstanceNotFound)
	}

	to, err := r.postponeTarget(date, inst, policies)
	if err != nil {
		from.insert(idx, inst)
		r.index[inst.ID] = from.Key()
		return nil, fmt.Errorf("postpone %s: %w", instanceID, err)
	}

	to.add(inst)
	r.index[inst.ID] = to.Key()
	r.logger.Info("postponed instance",
		zap.String("instance", inst.ID),
		zap.String("from", from.Key()),
		zap.String("to", to.Key()))
	return to, nil
}

func (r *Registry) postponeTarget(date time.Time, inst domain.Instance, policies Policies) (*Batch, error) {
	rules, err := policies.For(inst.Mode)
	if err != nil {
		return nil, err
	}
	return r.FindEligible(calendar.AddDays(calendar.Date(date), 1), rules.DailyLimit, rules.Calendar)
}

// Batches returns all batches ordered by date
func (r *Registry) Batches() []*Batch {
	out := make([]*Batch, 0, len(r.batches))
	for _, b := range r.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].date.Before(out[j].date)
	})
	return out
}

// Len returns the number of scheduled instances
func (r *Registry) Len() int {
	return len(r.index)
}

// Overview renders one "date => n instances" line per batch
func (r *Registry) Overview() string {
	lines := make([]string, 0, len(r.batches))
	for _, b := range r.Batches() {
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
