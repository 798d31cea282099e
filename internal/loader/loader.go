// Package loader reads the inventory CSV files of a data directory into a
// scheduling snapshot and watches the directory for changes.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
	"github.com/hochfrequenz/upgrade-scheduler/internal/scheduler"
)

// File names inside a data directory
const (
	InstancesFile      = "instances.csv"
	ReplicasFile       = "database-replicas.csv"
	LoadBalancingsFile = "load-balancing.csv"
)

// Files lists every file LoadDir reads
var Files = []string{InstancesFile, ReplicasFile, LoadBalancingsFile}

// Loader reads data directories
type Loader struct {
	logger         *zap.Logger
	groupSeparator string
}

// New creates a Loader. An empty separator uses DefaultGroupSeparator.
func New(logger *zap.Logger, groupSeparator string) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if groupSeparator == "" {
		groupSeparator = DefaultGroupSeparator
	}
	return &Loader{logger: logger, groupSeparator: groupSeparator}
}

// LoadDir parses the three inventory files of dir concurrently. The
// instances file is required; missing replica or load balancing files
// yield no records.
func (l *Loader) LoadDir(ctx context.Context, dir string) (scheduler.Snapshot, error) {
	var snap scheduler.Snapshot
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		snap.Instances, err = readFile(ctx, filepath.Join(dir, InstancesFile), false, ReadInstances)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Replicas, err = readFile(ctx, filepath.Join(dir, ReplicasFile), true, ReadReplicas)
		return err
	})
	g.Go(func() error {
		var err error
		snap.LoadBalancings, err = readFile(ctx, filepath.Join(dir, LoadBalancingsFile), true,
			func(r io.Reader) ([]domain.LoadBalancing, error) { return ReadLoadBalancings(r, l.groupSeparator) })
		return err
	})

	if err := g.Wait(); err != nil {
		return scheduler.Snapshot{}, err
	}

	l.logger.Info("loaded inventory",
		zap.String("dir", dir),
		zap.Int("instances", len(snap.Instances)),
		zap.Int("database_replicas", len(snap.Replicas)),
		zap.Int("load_balancing_groups", len(snap.LoadBalancings)))
	return snap, nil
}

func readFile[T any](ctx context.Context, path string, optional bool, read func(io.Reader) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	records, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}
