// Package batch holds the date-keyed upgrade batches of a scheduling run.
package batch

import (
	"fmt"
	"time"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// Batch is the set of instances upgraded on one calendar date.
// Membership only changes through the owning Registry.
type Batch struct {
	date      time.Time
	limit     int
	instances []domain.Instance
}

// Date returns the calendar date of the batch
func (b *Batch) Date() time.Time {
	return b.date
}

// Key returns the date key identifying the batch
func (b *Batch) Key() string {
	return calendar.Key(b.date)
}

// Limit returns the daily limit in force when the batch was created
func (b *Batch) Limit() int {
	return b.limit
}

// Size returns the number of instances in the batch
func (b *Batch) Size() int {
	return len(b.instances)
}

// Instances returns the members in insertion order
func (b *Batch) Instances() []domain.Instance {
	out := make([]domain.Instance, len(b.instances))
	copy(out, b.instances)
	return out
}

// Contains reports whether instanceID is a member
func (b *Batch) Contains(instanceID string) bool {
	return b.indexOf(instanceID) >= 0
}

func (b *Batch) String() string {
	return fmt.Sprintf("%s => %d instances", b.Key(), b.Size())
}

func (b *Batch) indexOf(instanceID string) int {
	for i, inst := range b.instances {
		if inst.ID == instanceID {
			return i
		}
	}
	return -1
}

func (b *Batch) add(inst domain.Instance) {
	b.instances = append(b.instances, inst)
}

func (b *Batch) insert(idx int, inst domain.Instance) {
	if idx < 0 || idx >= len(b.instances) {
		b.add(inst)
		return
	}
	b.instances = append(b.instances, domain.Instance{})
	copy(b.instances[idx+1:], b.instances[idx:])
	b.instances[idx] = inst
}

func (b *Batch) remove(instanceID string) (domain.Instance, bool) {
	idx := b.indexOf(instanceID)
	if idx < 0 {
		return domain.Instance{}, false
	}
	inst := b.instances[idx]
	b.instances = append(b.instances[:idx], b.instances[idx+1:]...)
	return inst, true
}
