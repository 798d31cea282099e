package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
	"github.com/hochfrequenz/upgrade-scheduler/internal/loader"
	"github.com/hochfrequenz/upgrade-scheduler/internal/metrics"
	"github.com/hochfrequenz/upgrade-scheduler/internal/report"
	"github.com/hochfrequenz/upgrade-scheduler/internal/scheduler"
	"github.com/hochfrequenz/upgrade-scheduler/internal/store"
	"github.com/hochfrequenz/upgrade-scheduler/internal/trigger"
)

var (
	loadDataDir string

	scheduleFromCSV   string
	scheduleSave      bool
	scheduleFormat    string
	scheduleStartDate string
	scheduleSortBy    string

	showSummary  bool
	showOverview bool
	showFormat   string

	runsLimit int

	watchDataDir string
)

func init() {
	// load command
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Replace the stored inventory with the CSV files of a data directory",
		RunE:  runLoad,
	}
	loadCmd.Flags().StringVar(&loadDataDir, "data", "", "data directory (default from config)")
	rootCmd.AddCommand(loadCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute a schedule from the stored inventory",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().StringVar(&scheduleFromCSV, "from-csv", "", "read the inventory from this data directory instead of the database")
	scheduleCmd.Flags().BoolVar(&scheduleSave, "save", false, "store the run and its schedule")
	scheduleCmd.Flags().StringVar(&scheduleFormat, "format", "table", "output format (table, csv, yaml, json)")
	scheduleCmd.Flags().StringVar(&scheduleStartDate, "start-date", "", "first date for on-demand instances (YYYY-MM-DD)")
	scheduleCmd.Flags().StringVar(&scheduleSortBy, "sort-by", "", "on-demand ordering (app, type)")
	rootCmd.AddCommand(scheduleCmd)

	// show command
	showCmd := &cobra.Command{
		Use:   "show [RUN_ID]",
		Short: "Show a stored schedule (latest run by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShow,
	}
	showCmd.Flags().BoolVar(&showSummary, "summary", false, "print per-day counts instead of every instance")
	showCmd.Flags().BoolVar(&showOverview, "overview", false, "print one \"date => N instances\" line per day")
	showCmd.Flags().StringVar(&showFormat, "format", "table", "output format (table, csv, yaml, json)")
	showCmd.MarkFlagsMutuallyExclusive("summary", "overview")
	rootCmd.AddCommand(showCmd)

	// runs command
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runRuns,
	}
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs (0 for all)")
	rootCmd.AddCommand(runsCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload and reschedule whenever the inventory CSV files change",
		Long: `Reload and reschedule whenever the inventory CSV files change.

If schedule.refresh_cron is set, the inventory is also rescheduled at every
activation of that cron expression so an unset start date follows the clock.`,
		RunE: runWatch,
	}
	watchCmd.Flags().StringVar(&watchDataDir, "data", "", "data directory (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func openStore() (*store.Store, error) {
	if err := os.MkdirAll(dirOf(cfg.General.DatabasePath), 0755); err != nil {
		return nil, err
	}
	return store.New(cfg.General.DatabasePath)
}

func runLoad(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := importDir(cmd.Context(), st, orDefault(loadDataDir, cfg.General.DataDir))
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d instances, %d database replicas, %d load balancing groups\n",
		stats.Instances, stats.Replicas, stats.LoadBalancings)
	return nil
}

func importDir(ctx context.Context, st *store.Store, dir string) (store.ImportStats, error) {
	snap, err := loader.New(logger.Named("loader"), "").LoadDir(ctx, dir)
	if err != nil {
		return store.ImportStats{}, err
	}
	return st.ImportSnapshot(snap)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(scheduleFormat)
	if err != nil {
		return err
	}
	params, err := runParams()
	if err != nil {
		return err
	}

	var st *store.Store
	if scheduleFromCSV == "" || scheduleSave {
		st, err = openStore()
		if err != nil {
			return err
		}
		defer st.Close()
	}

	var snap scheduler.Snapshot
	if scheduleFromCSV != "" {
		snap, err = loader.New(logger.Named("loader"), "").LoadDir(cmd.Context(), scheduleFromCSV)
	} else {
		snap, err = st.Snapshot()
	}
	if err != nil {
		return err
	}

	result, run, err := schedule(params, snap, metrics.NewPrometheus(nil))
	if err != nil {
		return err
	}

	if scheduleSave {
		run, err = st.SaveRun(run, result.Records)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		logger.Info("saved run", zap.String("run", run.ID))
	}

	return report.Write(os.Stdout, format, result.Records)
}

// runParams merges config and command line overrides
func runParams() (scheduler.Params, error) {
	if scheduleStartDate != "" {
		cfg.Schedule.StartDate = scheduleStartDate
	}
	if scheduleSortBy != "" {
		cfg.Schedule.SortBy = scheduleSortBy
	}

	params, err := cfg.Params()
	if err != nil {
		return scheduler.Params{}, err
	}
	if params.StartDate.IsZero() {
		params.StartDate = calendar.Date(time.Now())
		logger.Info("no start date configured, starting today", zap.String("start_date", calendar.Key(params.StartDate)))
	}
	return params, nil
}

// schedule runs the scheduler once, recording into rec, and exports rec
// when a textfile is configured
func schedule(params scheduler.Params, snap scheduler.Snapshot, rec *metrics.Prometheus) (*scheduler.Result, domain.Run, error) {
	s, err := scheduler.New(params, scheduler.WithLogger(logger.Named("scheduler")), scheduler.WithRecorder(rec))
	if err != nil {
		return nil, domain.Run{}, err
	}

	started := time.Now().UTC()
	result, err := s.Run(snap)
	if err != nil {
		return nil, domain.Run{}, err
	}

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("writing metrics textfile", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}

	run := domain.Run{
		StartDate:      params.StartDate,
		SortBy:         params.SortBy,
		InstanceCount:  len(result.Records),
		BatchCount:     len(result.Batches),
		Exchanges:      result.Stats.Exchanges,
		Postponements:  result.Stats.Postponements,
		SameDateGroups: result.Stats.SameDateGroups,
		StartedAt:      started,
		FinishedAt:     time.Now().UTC(),
	}
	return result, run, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(showFormat)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var run *domain.Run
	if len(args) == 1 {
		run, err = st.GetRun(args[0])
	} else {
		run, err = st.LatestRun()
	}
	if err != nil {
		return err
	}

	records, err := st.ListScheduled(run.ID)
	if err != nil {
		return err
	}

	switch {
	case showSummary:
		return report.WriteSummary(os.Stdout, *run, records)
	case showOverview:
		return report.WriteOverview(os.Stdout, records)
	}
	return report.Write(os.Stdout, format, records)
}

func runRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored yet. Use 'schedule --save' or 'watch' to create one.")
		return nil
	}
	return report.WriteRuns(os.Stdout, runs)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := orDefault(watchDataDir, cfg.General.DataDir)
	if _, err := runParams(); err != nil {
		return err
	}

	var refresh *trigger.Cron
	if cfg.Schedule.RefreshCron != "" {
		c, err := trigger.NewCron(cfg.Schedule.RefreshCron, logger.Named("refresh"))
		if err != nil {
			return fmt.Errorf("schedule.refresh_cron: %w", err)
		}
		refresh = c
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// callbacks are serialized through this channel so the store is never used concurrently
	changes := make(chan []string, 1)
	w, err := loader.NewWatcher(dir, logger.Named("watcher"), func(files []string) {
		select {
		case changes <- files:
		default:
		}
	})
	if err != nil {
		return err
	}
	w.Start(ctx)
	defer w.Stop()

	rec := metrics.NewPrometheus(nil)
	ticks := make(chan struct{}, 1)
	if refresh != nil {
		go refresh.Run(ctx, func(context.Context) {
			select {
			case ticks <- struct{}{}:
			default:
			}
		})
	}

	reschedule := func() {
		run, err := reimport(ctx, st, dir, rec)
		if err != nil {
			logger.Error("reschedule failed", zap.Error(err))
			return
		}
		logger.Info("rescheduled", zap.String("run", run.ID), zap.Int("instances", run.InstanceCount), zap.Int("batches", run.BatchCount))
	}

	reschedule()
	fmt.Printf("Watching %s for inventory changes (Ctrl+C to stop)\n", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case files := <-changes:
			logger.Info("inventory changed", zap.Strings("files", files))
			reschedule()
		case <-ticks:
			logger.Info("scheduled refresh", zap.String("cron", cfg.Schedule.RefreshCron))
			reschedule()
		}
	}
}

// reimport replaces the stored inventory with the files in dir, schedules it
// and saves the run
func reimport(ctx context.Context, st *store.Store, dir string, rec *metrics.Prometheus) (domain.Run, error) {
	params, err := runParams()
	if err != nil {
		return domain.Run{}, err
	}
	if _, err := importDir(ctx, st, dir); err != nil {
		return domain.Run{}, fmt.Errorf("import: %w", err)
	}
	snap, err := st.Snapshot()
	if err != nil {
		return domain.Run{}, fmt.Errorf("reading inventory: %w", err)
	}
	result, run, err := schedule(params, snap, rec)
	if err != nil {
		return domain.Run{}, err
	}
	run, err = st.SaveRun(run, result.Records)
	if err != nil {
		return domain.Run{}, fmt.Errorf("saving run: %w", err)
	}
	return run, nil
}

func dirOf(path string) string {
	if path == ":memory:" {
		return "."
	}
	return filepath.Dir(path)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
