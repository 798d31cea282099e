package scheduler

import (
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

type replicaRef struct {
	id   string
	role domain.ReplicaRole
}

type groupRef struct {
	id   string
	side domain.GroupSide
}

// Consolidate flattens the registry into schedule records: batches by date,
// instances in batch order. Replica and group columns default to NA; the
// first matching pair or group in input order wins.
func (s *Scheduler) Consolidate(replicas []domain.DatabaseReplica, groups []domain.LoadBalancing) []domain.Scheduled {
	replicaRoles := make(map[string]replicaRef)
	for _, r := range replicas {
		if _, ok := replicaRoles[r.MajorInstanceID]; !ok {
			replicaRoles[r.MajorInstanceID] = replicaRef{id: r.ID, role: domain.ReplicaMajor}
		}
		if _, ok := replicaRoles[r.MinorInstanceID]; !ok {
			replicaRoles[r.MinorInstanceID] = replicaRef{id: r.ID, role: domain.ReplicaMinor}
		}
	}

	groupSides := make(map[string]groupRef)
	for _, lb := range groups {
		for _, id := range lb.GroupA {
			if _, ok := groupSides[id]; !ok {
				groupSides[id] = groupRef{id: lb.ID, side: domain.SideA}
			}
		}
		for _, id := range lb.GroupB {
			if _, ok := groupSides[id]; !ok {
				groupSides[id] = groupRef{id: lb.ID, side: domain.SideB}
			}
		}
	}

	records := make([]domain.Scheduled, 0, s.registry.Len())
	for _, b := range s.registry.Batches() {
		for _, inst := range b.Instances() {
			rec := domain.Scheduled{
				Instance:          inst,
				ScheduleDate:      b.Date(),
				DatabaseReplicaID: domain.NotApplicable,
				DatabaseReplica:   domain.ReplicaNone,
				LoadBalancingID:   domain.NotApplicable,
				LoadBalancing:     domain.SideNone,
			}
			if ref, ok := replicaRoles[inst.ID]; ok {
				rec.DatabaseReplicaID, rec.DatabaseReplica = ref.id, ref.role
			}
			if ref, ok := groupSides[inst.ID]; ok {
				rec.LoadBalancingID, rec.LoadBalancing = ref.id, ref.side
			}
			records = append(records, rec)
		}
	}
	return records
}
