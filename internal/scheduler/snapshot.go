package scheduler

import (
	"errors"
	"fmt"

	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

var (
	// ErrDuplicateInstance is returned when two inventory rows share an id
	ErrDuplicateInstance = errors.New("duplicate instance id")

	// ErrUnscheduledInstance is returned when a replica pair or load-balancing
	// group references an instance that holds no batch
	ErrUnscheduledInstance = errors.New("referenced instance is not scheduled")

	// ErrInvalidReference wraps malformed replica or group records
	ErrInvalidReference = errors.New("invalid reference data")
)

// Snapshot is the immutable input of one run
type Snapshot struct {
	Instances      []domain.Instance
	Replicas       []domain.DatabaseReplica
	LoadBalancings []domain.LoadBalancing
}

// Validate checks record shapes and instance id uniqueness. References to
// unknown instances are detected during reconciliation.
func (s Snapshot) Validate() error {
	seen := make(map[string]struct{}, len(s.Instances))
	for _, inst := range s.Instances {
		if err := inst.Validate(); err != nil {
			return err
		}
		if _, dup := seen[inst.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateInstance, inst.ID)
		}
		seen[inst.ID] = struct{}{}
	}
	for _, r := range s.Replicas {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
	}
	for _, lb := range s.LoadBalancings {
		if err := lb.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidReference, err)
		}
	}
	return nil
}

// selectInstances returns the instances of one mode and acquisition type in input order
func (s Snapshot) selectInstances(mode domain.Mode, acq domain.Acquisition) []domain.Instance {
	var out []domain.Instance
	for _, inst := range s.Instances {
		if inst.Mode == mode && inst.Acquisition() == acq {
			out = append(out, inst)
		}
	}
	return out
}
