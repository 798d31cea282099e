package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

const runColumns = `id, start_date, sort_by, instance_count, batch_count, exchanges, postponements, same_date_groups, started_at, finished_at`

// SaveRun stores a run together with its schedule records. A run without an
// ID gets a new UUID. The stored run is returned.
func (s *Store) SaveRun(run domain.Run, records []domain.Scheduled) (domain.Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	run.InstanceCount = len(records)

	err := s.inTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			calendar.Key(run.StartDate),
			string(run.SortBy),
			run.InstanceCount,
			run.BatchCount,
			run.Exchanges,
			run.Postponements,
			run.SameDateGroups,
			run.StartedAt,
			run.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO scheduled (run_id, position, instance_id, mode, zone, type, application, reserve_expiry_date,
				schedule_date, database_replica_id, database_replica, load_balancing_id, load_balancing)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, rec := range records {
			_, err := stmt.Exec(
				run.ID, i,
				rec.ID, string(rec.Mode), rec.Zone, rec.Type, rec.Application, rec.ReserveExpiryDate,
				calendar.Key(rec.ScheduleDate),
				rec.DatabaseReplicaID, string(rec.DatabaseReplica),
				rec.LoadBalancingID, string(rec.LoadBalancing),
			)
			if err != nil {
				return fmt.Errorf("inserting schedule of %s: %w", rec.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

// GetRun retrieves a run by ID
func (s *Store) GetRun(id string) (*domain.Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// LatestRun returns the most recently started run
func (s *Store) LatestRun() (*domain.Run, error) {
	row := s.db.QueryRow(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no runs stored: %w", ErrNotFound)
	}
	return run, err
}

// ListRuns returns up to limit runs, newest first. A limit of zero lists all.
func (s *Store) ListRuns(limit int) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListScheduled returns the schedule of a run in consolidation order
func (s *Store) ListScheduled(runID string) ([]domain.Scheduled, error) {
	rows, err := s.db.Query(`
		SELECT instance_id, mode, zone, type, application, reserve_expiry_date, schedule_date,
			database_replica_id, database_replica, load_balancing_id, load_balancing
		FROM scheduled WHERE run_id = ? ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Scheduled
	for rows.Next() {
		var rec domain.Scheduled
		var mode, scheduleDate, replicaRole, side string
		var zone, typ, app sql.NullString
		err := rows.Scan(&rec.ID, &mode, &zone, &typ, &app, &rec.ReserveExpiryDate, &scheduleDate,
			&rec.DatabaseReplicaID, &replicaRole, &rec.LoadBalancingID, &side)
		if err != nil {
			return nil, err
		}
		rec.ScheduleDate, err = calendar.ParseDate(scheduleDate)
		if err != nil {
			return nil, fmt.Errorf("schedule of %s: %w", rec.ID, err)
		}
		rec.Mode = domain.Mode(mode)
		rec.Zone, rec.Type, rec.Application = zone.String, typ.String, app.String
		rec.DatabaseReplica = domain.ReplicaRole(replicaRole)
		rec.LoadBalancing = domain.GroupSide(side)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*domain.Run, error) {
	var run domain.Run
	var startDate string
	var sortBy sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := sc.Scan(&run.ID, &startDate, &sortBy, &run.InstanceCount, &run.BatchCount,
		&run.Exchanges, &run.Postponements, &run.SameDateGroups, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.StartDate, err = calendar.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.ID, err)
	}
	run.SortBy = domain.SortKey(sortBy.String)
	run.StartedAt = startedAt.Time
	run.FinishedAt = finishedAt.Time
	return &run, nil
}
