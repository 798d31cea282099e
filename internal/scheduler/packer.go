package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/upgrade-scheduler/internal/batch"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// Pack places every instance of the snapshot into the earliest eligible
// batch with room: dev reserved, dev on-demand, prod reserved, prod on-demand.
func (s *Scheduler) Pack(snap Snapshot) error {
	for _, mode := range domain.Modes {
		rules, err := s.policies.For(mode)
		if err != nil {
			return err
		}
		if err := s.packReserved(mode, rules, snap.selectInstances(mode, domain.AcquisitionReserved)); err != nil {
			return err
		}
		if err := s.packOnDemand(mode, rules, snap.selectInstances(mode, domain.AcquisitionOnDemand)); err != nil {
			return err
		}
	}
	return nil
}

// packReserved anchors each instance at its own reservation expiry
func (s *Scheduler) packReserved(mode domain.Mode, rules batch.Rules, instances []domain.Instance) error {
	s.logger.Info("scheduling reserved instances", zap.String("mode", string(mode)), zap.Int("count", len(instances)))

	dates := make(map[string]struct{})
	for _, inst := range instances {
		anchor, err := inst.ExpiryDate()
		if err != nil {
			return err
		}
		b, err := s.placeFrom(anchor, inst, rules)
		if err != nil {
			return err
		}
		dates[b.Key()] = struct{}{}
		s.stats.ReservedPlaced++
	}

	s.logger.Info("scheduled reserved instances", zap.String("mode", string(mode)), zap.Int("batches", len(dates)))
	return nil
}

// packOnDemand sorts by the run's sort key and anchors every instance at the
// shared start date, so earlier instances claim earlier batches.
func (s *Scheduler) packOnDemand(mode domain.Mode, rules batch.Rules, instances []domain.Instance) error {
	s.logger.Info("scheduling on-demand instances",
		zap.String("mode", string(mode)),
		zap.Int("count", len(instances)),
		zap.String("sort_by", string(s.params.SortBy)))

	dates := make(map[string]struct{})
	for _, inst := range domain.SortInstances(instances, s.params.SortBy) {
		b, err := s.placeFrom(s.params.StartDate, inst, rules)
		if err != nil {
			return err
		}
		dates[b.Key()] = struct{}{}
		s.stats.OnDemandPlaced++
	}

	s.logger.Info("scheduled on-demand instances", zap.String("mode", string(mode)), zap.Int("batches", len(dates)))
	return nil
}

func (s *Scheduler) placeFrom(anchor time.Time, inst domain.Instance, rules batch.Rules) (*batch.Batch, error) {
	b, err := s.registry.FindEligible(anchor, rules.DailyLimit, rules.Calendar)
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", inst.ID, err)
	}
	if err := s.registry.Place(inst, b); err != nil {
		return nil, err
	}
	s.recorder.ObservePlacement(inst.Mode, inst.Acquisition())
	return b, nil
}
