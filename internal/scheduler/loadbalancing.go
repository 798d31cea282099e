package scheduler

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// ReconcileLoadBalancings staggers the two sides of every group so their
// upgrade windows never overlap. Groups are visited once, in input order.
// It returns the number of groups it changed.
func (s *Scheduler) ReconcileLoadBalancings(groups []domain.LoadBalancing) (int, error) {
	moved := 0
	for _, lb := range groups {
		changed, err := s.reconcileGroup(lb)
		if err != nil {
			return moved, fmt.Errorf("load balancing %s: %w", lb.ID, err)
		}
		if changed {
			moved++
		}
	}
	s.logger.Info("load balancing reconciliation done", zap.Int("same_date_groups", s.stats.SameDateGroups))
	return moved, nil
}

func (s *Scheduler) reconcileGroup(lb domain.LoadBalancing) (bool, error) {
	datesA, err := s.sideDates(lb.ID, lb.GroupA)
	if err != nil {
		return false, err
	}
	datesB, err := s.sideDates(lb.ID, lb.GroupB)
	if err != nil {
		return false, err
	}
	if len(datesA) == 0 || len(datesB) == 0 {
		s.logger.Debug("load balancing group has an empty side, nothing to stagger", zap.String("group", lb.ID))
		return false, nil
	}

	if len(datesA) == 1 && len(datesB) == 1 && datesA[0].Equal(datesB[0]) {
		s.stats.SameDateGroups++
		s.logger.Info("both sides share one date, postponing group B",
			zap.String("group", lb.ID), zap.String("date", calendar.Key(datesA[0])))
		for _, id := range unique(lb.GroupB) {
			if _, err := s.registry.Postpone(id, s.policies); err != nil {
				return true, err
			}
			s.stats.Postponements++
			s.recorder.ObservePostpone(ReasonLoadBalancingSame)
		}
		return true, nil
	}

	// The side that starts first leads; A leads on a tie.
	leading, trailing, trailingSide := datesA, lb.GroupB, domain.SideB
	if datesB[0].Before(datesA[0]) {
		leading, trailing, trailingSide = datesB, lb.GroupA, domain.SideA
	}
	lastDate := leading[len(leading)-1]

	changed := false
	for _, id := range unique(trailing) {
		b, err := s.batchOf(id, "load balancing", lb.ID)
		if err != nil {
			return changed, err
		}
		if b.Date().After(lastDate) {
			continue
		}
		s.logger.Info("trailing instance is not later than leading side, postponing",
			zap.String("group", lb.ID),
			zap.String("side", string(trailingSide)),
			zap.String("instance", id),
			zap.String("date", b.Key()),
			zap.String("leading_last_date", calendar.Key(lastDate)))
		if _, err := s.registry.PostponeFrom(lastDate, id, s.policies); err != nil {
			return true, err
		}
		s.stats.Postponements++
		s.recorder.ObservePostpone(ReasonLoadBalancing)
		changed = true
	}
	return changed, nil
}

// sideDates returns the distinct batch dates of one side in ascending order
func (s *Scheduler) sideDates(groupID string, ids []string) ([]time.Time, error) {
	seen := make(map[string]time.Time, len(ids))
	for _, id := range ids {
		b, err := s.batchOf(id, "load balancing", groupID)
		if err != nil {
			return nil, err
		}
		seen[b.Key()] = b.Date()
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
