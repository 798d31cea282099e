package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
	"github.com/hochfrequenz/upgrade-scheduler/internal/scheduler"
)

func insertInstance(ex execer, inst domain.Instance) error {
	_, err := ex.Exec(`
		INSERT INTO instances (id, mode, zone, type, application, reserve_expiry_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		inst.ID,
		string(inst.Mode),
		inst.Zone,
		inst.Type,
		inst.Application,
		inst.ReserveExpiryDate,
		time.Now(),
	)
	return err
}

func insertReplica(ex execer, r domain.DatabaseReplica) error {
	_, err := ex.Exec(`
		INSERT INTO database_replicas (id, major_instance_id, minor_instance_id, updated_at)
		VALUES (?, ?, ?, ?)
	`, r.ID, r.MajorInstanceID, r.MinorInstanceID, time.Now())
	return err
}

func insertLoadBalancing(ex execer, lb domain.LoadBalancing) error {
	groupA, err := json.Marshal(nonNil(lb.GroupA))
	if err != nil {
		return err
	}
	groupB, err := json.Marshal(nonNil(lb.GroupB))
	if err != nil {
		return err
	}

	_, err = ex.Exec(`
		INSERT INTO load_balancing_groups (id, group_a, group_b, updated_at)
		VALUES (?, ?, ?, ?)
	`, lb.ID, string(groupA), string(groupB), time.Now())
	return err
}

// ImportStats counts the rows written by ImportSnapshot
type ImportStats struct {
	Instances      int
	Replicas       int
	LoadBalancings int
}

// ImportSnapshot replaces the stored inventory with snap in one transaction.
// Rows missing from snap are deleted. On error the previous inventory is kept.
func (s *Store) ImportSnapshot(snap scheduler.Snapshot) (ImportStats, error) {
	var stats ImportStats
	err := s.inTx(func(tx *sql.Tx) error {
		for _, table := range []string{"instances", "database_replicas", "load_balancing_groups"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}

		for _, inst := range snap.Instances {
			if err := insertInstance(tx, inst); err != nil {
				return fmt.Errorf("instance %s: %w", inst.ID, err)
			}
			stats.Instances++
		}
		for _, r := range snap.Replicas {
			if err := insertReplica(tx, r); err != nil {
				return fmt.Errorf("database replica %s: %w", r.ID, err)
			}
			stats.Replicas++
		}
		for _, lb := range snap.LoadBalancings {
			if err := insertLoadBalancing(tx, lb); err != nil {
				return fmt.Errorf("load balancing %s: %w", lb.ID, err)
			}
			stats.LoadBalancings++
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}

func (s *Store) listInstances() ([]domain.Instance, error) {
	rows, err := s.db.Query(`
		SELECT id, mode, zone, type, application, reserve_expiry_date
		FROM instances ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Instance
	for rows.Next() {
		var inst domain.Instance
		var mode string
		var zone, typ, app sql.NullString
		if err := rows.Scan(&inst.ID, &mode, &zone, &typ, &app, &inst.ReserveExpiryDate); err != nil {
			return nil, err
		}
		inst.Mode = domain.Mode(mode)
		inst.Zone, inst.Type, inst.Application = zone.String, typ.String, app.String
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *Store) listReplicas() ([]domain.DatabaseReplica, error) {
	rows, err := s.db.Query(`SELECT id, major_instance_id, minor_instance_id FROM database_replicas ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DatabaseReplica
	for rows.Next() {
		var r domain.DatabaseReplica
		if err := rows.Scan(&r.ID, &r.MajorInstanceID, &r.MinorInstanceID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) listLoadBalancings() ([]domain.LoadBalancing, error) {
	rows, err := s.db.Query(`SELECT id, group_a, group_b FROM load_balancing_groups ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LoadBalancing
	for rows.Next() {
		var lb domain.LoadBalancing
		var groupA, groupB string
		if err := rows.Scan(&lb.ID, &groupA, &groupB); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(groupA), &lb.GroupA); err != nil {
			return nil, fmt.Errorf("load balancing %s group A: %w", lb.ID, err)
		}
		if err := json.Unmarshal([]byte(groupB), &lb.GroupB); err != nil {
			return nil, fmt.Errorf("load balancing %s group B: %w", lb.ID, err)
		}
		out = append(out, lb)
	}
	return out, rows.Err()
}

// Snapshot reads the whole inventory in import order
func (s *Store) Snapshot() (scheduler.Snapshot, error) {
	instances, err := s.listInstances()
	if err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("listing instances: %w", err)
	}
	replicas, err := s.listReplicas()
	if err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("listing database replicas: %w", err)
	}
	groups, err := s.listLoadBalancings()
	if err != nil {
		return scheduler.Snapshot{}, fmt.Errorf("listing load balancing groups: %w", err)
	}
	return scheduler.Snapshot{Instances: instances, Replicas: replicas, LoadBalancings: groups}, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
