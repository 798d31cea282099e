package store

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
	"github.com/hochfrequenz/upgrade-scheduler/internal/scheduler"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testSnapshot() scheduler.Snapshot {
	return scheduler.Snapshot{
		Instances: []domain.Instance{
			{ID: "web-2", Mode: domain.ModeProd, Zone: "a", Type: "m5.large", Application: "shop", ReserveExpiryDate: "2026-11-04"},
			{ID: "web-1", Mode: domain.ModeProd, Zone: "b", Type: "m5.large", Application: "shop", ReserveExpiryDate: domain.OnDemandMarker},
			{ID: "db-1", Mode: domain.ModeDev, Zone: "a", Type: "r5.xlarge", Application: "shop", ReserveExpiryDate: domain.OnDemandMarker},
			{ID: "db-2", Mode: domain.ModeDev, Zone: "b", Type: "r5.xlarge", Application: "shop", ReserveExpiryDate: "2026-11-05"},
		},
		Replicas: []domain.DatabaseReplica{
			{ID: "rep-1", MajorInstanceID: "db-1", MinorInstanceID: "db-2"},
		},
		LoadBalancings: []domain.LoadBalancing{
			{ID: "lb-1", GroupA: []string{"web-1"}, GroupB: []string{"web-2"}},
			{ID: "lb-2", GroupA: []string{"db-1"}},
		},
	}
}

func TestStore_ImportAndSnapshot(t *testing.T) {
	store := newTestStore(t)
	snap := testSnapshot()

	stats, err := store.ImportSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (ImportStats{Instances: 4, Replicas: 1, LoadBalancings: 2}) {
		t.Errorf("stats = %+v", stats)
	}

	got, err := store.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(got.Instances, snap.Instances) {
		t.Errorf("Instances = %+v, want insertion order %+v", got.Instances, snap.Instances)
	}
	if !reflect.DeepEqual(got.Replicas, snap.Replicas) {
		t.Errorf("Replicas = %+v", got.Replicas)
	}
	if len(got.LoadBalancings) != 2 {
		t.Fatalf("LoadBalancings count = %d, want 2", len(got.LoadBalancings))
	}
	if !reflect.DeepEqual(got.LoadBalancings[0], snap.LoadBalancings[0]) {
		t.Errorf("LoadBalancings[0] = %+v", got.LoadBalancings[0])
	}
	if len(got.LoadBalancings[1].GroupB) != 0 {
		t.Errorf("empty side came back as %v", got.LoadBalancings[1].GroupB)
	}
}

func instanceIDs(instances []domain.Instance) []string {
	var ids []string
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	return ids
}

func TestStore_ImportReplacesInventory(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.ImportSnapshot(testSnapshot()); err != nil {
		t.Fatal(err)
	}

	// the second import drops web-1, db-1, lb-2 and rewires rep-1
	next := scheduler.Snapshot{
		Instances: []domain.Instance{
			{ID: "db-2", Mode: domain.ModeProd, Zone: "c", Type: "t3.small", Application: "shop", ReserveExpiryDate: domain.OnDemandMarker},
			{ID: "web-2", Mode: domain.ModeProd, Zone: "a", Type: "m5.large", Application: "shop", ReserveExpiryDate: "2026-11-04"},
		},
		Replicas: []domain.DatabaseReplica{
			{ID: "rep-1", MajorInstanceID: "web-2", MinorInstanceID: "db-2"},
		},
		LoadBalancings: []domain.LoadBalancing{
			{ID: "lb-1", GroupA: []string{"web-2"}, GroupB: []string{"db-2"}},
		},
	}
	stats, err := store.ImportSnapshot(next)
	if err != nil {
		t.Fatal(err)
	}
	if stats != (ImportStats{Instances: 2, Replicas: 1, LoadBalancings: 1}) {
		t.Errorf("stats = %+v", stats)
	}

	got, err := store.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Instances, next.Instances) {
		t.Errorf("Instances = %v, want %v", instanceIDs(got.Instances), instanceIDs(next.Instances))
	}
	if !reflect.DeepEqual(got.Replicas, next.Replicas) {
		t.Errorf("Replicas = %+v, want %+v", got.Replicas, next.Replicas)
	}
	if !reflect.DeepEqual(got.LoadBalancings, next.LoadBalancings) {
		t.Errorf("LoadBalancings = %+v, want %+v", got.LoadBalancings, next.LoadBalancings)
	}
}

func TestStore_ImportRollsBackOnDuplicate(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.ImportSnapshot(testSnapshot()); err != nil {
		t.Fatal(err)
	}

	dup := domain.Instance{ID: "x", Mode: domain.ModeDev, ReserveExpiryDate: domain.OnDemandMarker}
	if _, err := store.ImportSnapshot(scheduler.Snapshot{Instances: []domain.Instance{dup, dup}}); err == nil {
		t.Fatal("expected error for duplicate instance ids")
	}

	got, err := store.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"web-2", "web-1", "db-1", "db-2"}
	if ids := instanceIDs(got.Instances); !reflect.DeepEqual(ids, want) {
		t.Errorf("Instances = %v, want previous inventory %v", ids, want)
	}
	if len(got.Replicas) != 1 || len(got.LoadBalancings) != 2 {
		t.Errorf("replicas/groups = %d/%d, want 1/2", len(got.Replicas), len(got.LoadBalancings))
	}
}

func TestStore_SaveAndListRuns(t *testing.T) {
	store := newTestStore(t)
	start, _ := calendar.ParseDate("2026-11-02")
	wed, _ := calendar.ParseDate("2026-11-04")

	records := []domain.Scheduled{
		{
			Instance:          domain.Instance{ID: "db-2", Mode: domain.ModeDev, Zone: "b", Type: "r5.xlarge", Application: "shop", ReserveExpiryDate: "2026-11-04"},
			ScheduleDate:      wed,
			DatabaseReplicaID: "rep-1",
			DatabaseReplica:   domain.ReplicaMinor,
			LoadBalancingID:   domain.NotApplicable,
			LoadBalancing:     domain.SideNone,
		},
		{
			Instance:          domain.Instance{ID: "db-1", Mode: domain.ModeDev, Zone: "a", Type: "r5.xlarge", Application: "shop", ReserveExpiryDate: domain.OnDemandMarker},
			ScheduleDate:      wed.AddDate(0, 0, 1),
			DatabaseReplicaID: "rep-1",
			DatabaseReplica:   domain.ReplicaMajor,
			LoadBalancingID:   "lb-2",
			LoadBalancing:     domain.SideA,
		},
	}

	first, err := store.SaveRun(domain.Run{
		StartDate:     start,
		SortBy:        domain.SortByType,
		BatchCount:    2,
		Postponements: 1,
		StartedAt:     time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}, records)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == "" {
		t.Fatal("SaveRun did not assign an id")
	}
	if first.InstanceCount != 2 {
		t.Errorf("InstanceCount = %d, want 2", first.InstanceCount)
	}

	second, err := store.SaveRun(domain.Run{StartDate: start, StartedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Error("run ids must be unique")
	}

	got, err := store.GetRun(first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.SortBy != domain.SortByType || got.BatchCount != 2 || got.Postponements != 1 {
		t.Errorf("run = %+v", got)
	}
	if !got.StartDate.Equal(start) {
		t.Errorf("StartDate = %v, want %v", got.StartDate, start)
	}
	if !got.StartedAt.Equal(first.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, first.StartedAt)
	}

	latest, err := store.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != second.ID {
		t.Errorf("LatestRun = %s, want %s", latest.ID, second.ID)
	}

	runs, err := store.ListRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID {
		t.Errorf("ListRuns = %d runs, newest %v", len(runs), runs)
	}

	scheduled, err := store.ListScheduled(first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(scheduled, records) {
		t.Errorf("ListScheduled = %+v, want %+v", scheduled, records)
	}
}

func TestStore_RunNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRun err = %v, want ErrNotFound", err)
	}
	if _, err := store.LatestRun(); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestRun err = %v, want ErrNotFound", err)
	}
}

func TestStore_SaveRunRollsBack(t *testing.T) {
	store := newTestStore(t)
	rec := domain.Scheduled{Instance: domain.Instance{ID: "dup", Mode: domain.ModeDev, ReserveExpiryDate: domain.OnDemandMarker}}

	// the same instance twice violates the primary key
	_, err := store.SaveRun(domain.Run{ID: "run-1"}, []domain.Scheduled{rec, rec})
	if err == nil {
		t.Fatal("expected error for duplicate schedule rows")
	}

	if _, err := store.GetRun("run-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("run survived the failed transaction: %v", err)
	}
}
