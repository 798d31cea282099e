package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hochfrequenz/upgrade-scheduler/internal/config"
	"github.com/hochfrequenz/upgrade-scheduler/internal/loader"
	"github.com/hochfrequenz/upgrade-scheduler/internal/metrics"
	"github.com/hochfrequenz/upgrade-scheduler/internal/report"
	"github.com/hochfrequenz/upgrade-scheduler/internal/store"
)

func withConfig(t *testing.T) {
	t.Helper()
	cfg = config.Default()
	cfg.General.DatabasePath = filepath.Join(t.TempDir(), "db", "scheduler.db")
	cfg.Schedule.StartDate = "2026-11-02"
	cfg.Schedule.Dev.DailyLimit = 2
	cfg.Schedule.Prod.DailyLimit = 2
	t.Cleanup(func() {
		cfg = nil
		scheduleStartDate, scheduleSortBy = "", ""
	})
}

func writeInventory(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		loader.InstancesFile:      "db1,prod,a,r5.xlarge,shop,2026-11-04\ndb2,prod,b,r5.xlarge,shop,2026-11-04\nweb1,dev,a,m5.large,shop,OD\nweb2,dev,b,m5.large,shop,OD\n",
		loader.ReplicasFile:       "rep-1,db1,db2\n",
		loader.LoadBalancingsFile: "lb-1,web1,web2\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestRunParams_Overrides(t *testing.T) {
	withConfig(t)
	scheduleStartDate = "2026-11-09"
	scheduleSortBy = "app"

	params, err := runParams()
	require.NoError(t, err)
	assert.Equal(t, "2026-11-09", params.StartDate.Format("2006-01-02"))
	assert.EqualValues(t, "app", params.SortBy)
}

func TestSchedule_ImportRunAndSave(t *testing.T) {
	withConfig(t)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "sched.prom")
	dir := writeInventory(t)

	st, err := openStore()
	require.NoError(t, err)
	defer st.Close()

	stats, err := importDir(t.Context(), st, dir)
	require.NoError(t, err)
	assert.Equal(t, store.ImportStats{Instances: 4, Replicas: 1, LoadBalancings: 1}, stats)

	snap, err := st.Snapshot()
	require.NoError(t, err)
	params, err := runParams()
	require.NoError(t, err)

	result, run, err := schedule(params, snap, metrics.NewPrometheus(nil))
	require.NoError(t, err)
	assert.Equal(t, 4, run.InstanceCount)
	// db1 leaves db2's Wednesday, web2 leaves web1's Monday
	assert.Equal(t, 2, run.Postponements)
	assert.Equal(t, 1, run.SameDateGroups)
	assert.FileExists(t, cfg.Metrics.Textfile)

	saved, err := st.SaveRun(run, result.Records)
	require.NoError(t, err)
	records, err := st.ListScheduled(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Records, records)

	var buf bytes.Buffer
	require.NoError(t, report.WriteOverview(&buf, records))
	assert.Equal(t, "2026-11-02 => 1 instances\n2026-11-03 => 1 instances\n2026-11-04 => 1 instances\n2026-11-05 => 1 instances\n", buf.String())
}

func TestReimport_DropsRemovedRowsAndAccumulatesMetrics(t *testing.T) {
	withConfig(t)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "sched.prom")
	dir := writeInventory(t)

	st, err := openStore()
	require.NoError(t, err)
	defer st.Close()
	rec := metrics.NewPrometheus(nil)

	first, err := reimport(t.Context(), st, dir, rec)
	require.NoError(t, err)
	assert.Equal(t, 4, first.InstanceCount)

	// web2 and its group disappear from the inventory
	require.NoError(t, os.WriteFile(filepath.Join(dir, loader.InstancesFile),
		[]byte("db1,prod,a,r5.xlarge,shop,2026-11-04\ndb2,prod,b,r5.xlarge,shop,2026-11-04\nweb1,dev,a,m5.large,shop,OD\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, loader.LoadBalancingsFile), nil, 0644))

	second, err := reimport(t.Context(), st, dir, rec)
	require.NoError(t, err)
	assert.Equal(t, 3, second.InstanceCount)
	assert.Zero(t, second.SameDateGroups)

	snap, err := st.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Instances, 3)
	assert.Empty(t, snap.LoadBalancings)

	runs, err := st.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "upgrade_sched_runs_total 2")
	// web1 and web2 in the first run, web1 alone in the second
	assert.Contains(t, string(prom), `upgrade_sched_placements_total{acquisition="on-demand",mode="dev"} 3`)
	assert.Contains(t, string(prom), `upgrade_sched_postponements_total{reason="replica_tie"} 2`)
}
