package scheduler

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hochfrequenz/upgrade-scheduler/internal/batch"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// ReconcileReplicas makes every major run strictly after its minor. Pairs are
// visited once, in input order. It returns the number of pairs it changed.
func (s *Scheduler) ReconcileReplicas(replicas []domain.DatabaseReplica) (int, error) {
	moved := 0
	for _, r := range replicas {
		majorBatch, err := s.batchOf(r.MajorInstanceID, "database replica", r.ID)
		if err != nil {
			return moved, err
		}
		minorBatch, err := s.batchOf(r.MinorInstanceID, "database replica", r.ID)
		if err != nil {
			return moved, err
		}

		fields := []zap.Field{
			zap.String("replica", r.ID),
			zap.String("major_date", majorBatch.Key()),
			zap.String("minor_date", minorBatch.Key()),
		}

		switch {
		case majorBatch.Date().After(minorBatch.Date()):
			s.logger.Debug("major is later than minor, no adjustment", fields...)

		case majorBatch.Date().Before(minorBatch.Date()):
			s.logger.Info("major is earlier than minor, exchanging", fields...)
			s.registry.Exchange(majorBatch, r.MajorInstanceID, minorBatch, r.MinorInstanceID)
			s.stats.Exchanges++
			s.recorder.ObserveExchange()
			moved++

		default:
			s.logger.Info("major is on the same date as minor, postponing major", fields...)
			if _, err := s.registry.Postpone(r.MajorInstanceID, s.policies); err != nil {
				return moved, fmt.Errorf("database replica %s: %w", r.ID, err)
			}
			s.stats.Postponements++
			s.recorder.ObservePostpone(ReasonReplicaTie)
			moved++
		}
	}
	return moved, nil
}

func (s *Scheduler) batchOf(instanceID, kind, refID string) (*batch.Batch, error) {
	b, ok := s.registry.Batch(instanceID)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w: %s", kind, refID, ErrUnscheduledInstance, instanceID)
	}
	return b, nil
}
