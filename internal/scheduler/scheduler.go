// Package scheduler packs upgrade candidates into dated batches and repairs
// the result so replica pairs and load-balancing groups are never upgraded
// at the same time.
package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hochfrequenz/upgrade-scheduler/internal/batch"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

// Stats counts what a run did
type Stats struct {
	ReservedPlaced int
	OnDemandPlaced int
	Exchanges      int
	Postponements  int
	SameDateGroups int
}

// Result is the outcome of a complete run
type Result struct {
	Records []domain.Scheduled
	Batches []*batch.Batch
	Stats   Stats
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the event recorder
func WithRecorder(rec Recorder) Option {
	return func(s *Scheduler) {
		if rec != nil {
			s.recorder = rec
		}
	}
}

// Scheduler runs one scheduling pass over a fresh registry.
// A Scheduler is single-use and not safe for concurrent use.
type Scheduler struct {
	params   Params
	policies batch.Policies
	registry *batch.Registry
	logger   *zap.Logger
	recorder Recorder
	stats    Stats
}

// New validates params and creates a Scheduler with an empty registry
func New(params Params, opts ...Option) (*Scheduler, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		params:   params,
		policies: params.Policies(),
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = batch.NewRegistry(s.logger.Named("batch"), params.MaxLookaheadDays)
	return s, nil
}

// Registry exposes the batches built so far
func (s *Scheduler) Registry() *batch.Registry {
	return s.registry
}

// Stats returns the counters accumulated so far
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Run executes pack, replica reconciliation, load-balancing reconciliation
// and consolidation. It returns either a complete result or an error.
func (s *Scheduler) Run(snap Snapshot) (*Result, error) {
	started := time.Now()

	if err := snap.Validate(); err != nil {
		return nil, err
	}

	if err := s.Pack(snap); err != nil {
		return nil, fmt.Errorf("packing: %w", err)
	}
	s.logger.Info("schedule overview after packing", zap.String("batches", s.registry.Overview()))

	for sweep := 1; sweep <= s.params.sweeps(); sweep++ {
		replicaMoves, err := s.ReconcileReplicas(snap.Replicas)
		if err != nil {
			return nil, fmt.Errorf("reconciling database replicas: %w", err)
		}
		s.logger.Info("schedule overview after replica reconciliation",
			zap.Int("sweep", sweep), zap.String("batches", s.registry.Overview()))

		groupMoves, err := s.ReconcileLoadBalancings(snap.LoadBalancings)
		if err != nil {
			return nil, fmt.Errorf("reconciling load balancing groups: %w", err)
		}
		s.logger.Info("schedule overview after load balancing reconciliation",
			zap.Int("sweep", sweep), zap.String("batches", s.registry.Overview()))

		if replicaMoves+groupMoves == 0 {
			break
		}
	}

	records := s.Consolidate(snap.Replicas, snap.LoadBalancings)
	batches := s.registry.Batches()
	s.recorder.ObserveRun(s.stats, len(batches), time.Since(started))
	s.logger.Info("scheduling run complete",
		zap.Int("instances", len(records)),
		zap.Int("batches", len(batches)),
		zap.Int("exchanges", s.stats.Exchanges),
		zap.Int("postponements", s.stats.Postponements),
		zap.Duration("elapsed", time.Since(started)))

	return &Result{Records: records, Batches: batches, Stats: s.stats}, nil
}
