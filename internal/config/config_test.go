package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.Schedule.Dev.DailyLimit != 20 {
		t.Errorf("Dev.DailyLimit = %d, want 20", cfg.Schedule.Dev.DailyLimit)
	}
	if cfg.Schedule.Prod.AllowedDays != "TUE-THU" {
		t.Errorf("Prod.AllowedDays = %q, want TUE-THU", cfg.Schedule.Prod.AllowedDays)
	}
	if cfg.Schedule.MaxLookaheadDays != 366 {
		t.Errorf("MaxLookaheadDays = %d, want 366", cfg.Schedule.MaxLookaheadDays)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Schedule.Dev.DailyLimit != 20 {
		t.Errorf("Dev.DailyLimit = %d, want 20", cfg.Schedule.Dev.DailyLimit)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeTempConfig(t, `
[general]
data_dir = "/srv/inventory"

[schedule]
start_date = "2026-11-02"
sort_by = "app"
holidays = ["2026-12-25", "2026-12-31"]
reconcile_sweeps = 3
refresh_cron = "0 6 * * MON"

[schedule.prod]
daily_limit = 4
allowed_days = "1,3"

[logging]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.DataDir != "/srv/inventory" {
		t.Errorf("DataDir = %q, want /srv/inventory", cfg.General.DataDir)
	}
	if cfg.Schedule.Prod.DailyLimit != 4 {
		t.Errorf("Prod.DailyLimit = %d, want 4", cfg.Schedule.Prod.DailyLimit)
	}
	// untouched keys keep their defaults
	if cfg.Schedule.Dev.DailyLimit != 20 {
		t.Errorf("Dev.DailyLimit = %d, want 20", cfg.Schedule.Dev.DailyLimit)
	}
	if len(cfg.Schedule.Holidays) != 2 {
		t.Errorf("Holidays = %v, want 2 entries", cfg.Schedule.Holidays)
	}
	if cfg.Schedule.RefreshCron != "0 6 * * MON" {
		t.Errorf("RefreshCron = %q, want \"0 6 * * MON\"", cfg.Schedule.RefreshCron)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	path := writeTempConfig(t, "[schedule\nsort_by = ")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_Params(t *testing.T) {
	path := writeTempConfig(t, `
[schedule]
start_date = "2026-11-02"
sort_by = "type"
holidays = ["2026-12-25"]
max_lookahead_days = 90

[schedule.dev]
daily_limit = 7
allowed_days = "MON-FRI"

[schedule.prod]
daily_limit = 3
allowed_days = "TUE,THU"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	p, err := cfg.Params()
	if err != nil {
		t.Fatalf("Params() error = %v", err)
	}

	if p.Dev.DailyLimit != 7 || p.Prod.DailyLimit != 3 {
		t.Errorf("limits = %d/%d, want 7/3", p.Dev.DailyLimit, p.Prod.DailyLimit)
	}
	want := calendar.NewWeekdays(time.Tuesday, time.Thursday)
	if p.Prod.AllowedDays != want {
		t.Errorf("Prod.AllowedDays = %s, want %s", p.Prod.AllowedDays, want)
	}
	if p.SortBy != domain.SortByType {
		t.Errorf("SortBy = %q, want type", p.SortBy)
	}
	if calendar.Key(p.StartDate) != "2026-11-02" {
		t.Errorf("StartDate = %s, want 2026-11-02", calendar.Key(p.StartDate))
	}
	if len(p.Holidays) != 1 || calendar.Key(p.Holidays[0]) != "2026-12-25" {
		t.Errorf("Holidays = %v", p.Holidays)
	}
	if p.MaxLookaheadDays != 90 {
		t.Errorf("MaxLookaheadDays = %d, want 90", p.MaxLookaheadDays)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_ParamsErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad allowed days", func(c *Config) { c.Schedule.Dev.AllowedDays = "someday" }},
		{"empty allowed days", func(c *Config) { c.Schedule.Prod.AllowedDays = "" }},
		{"bad sort key", func(c *Config) { c.Schedule.SortBy = "size" }},
		{"bad start date", func(c *Config) { c.Schedule.StartDate = "02.11.2026" }},
		{"bad holiday", func(c *Config) { c.Schedule.Holidays = []string{"christmas"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Schedule.StartDate = "2026-11-02"
			tt.mutate(cfg)
			if _, err := cfg.Params(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConfig_ParamsEmptyAllowedDays(t *testing.T) {
	cfg := Default()
	cfg.Schedule.Dev.AllowedDays = ""
	_, err := cfg.Params()
	if !errors.Is(err, calendar.ErrNoAllowedDays) {
		t.Errorf("err = %v, want ErrNoAllowedDays", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFindLocalConfig(t *testing.T) {
	root := t.TempDir()
	subdir := filepath.Join(root, "sub", "dir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatal(err)
	}

	localConfig := filepath.Join(root, LocalConfigName)
	if err := os.WriteFile(localConfig, []byte("[general]\ndata_dir = \"/local\""), 0644); err != nil {
		t.Fatal(err)
	}

	chdir(t, subdir)

	// Should find config in parent
	found := FindLocalConfig()
	if found != localConfig {
		t.Errorf("FindLocalConfig() = %q, want %q", found, localConfig)
	}
}

func TestFindLocalConfig_NotFound(t *testing.T) {
	chdir(t, t.TempDir())

	found := FindLocalConfig()
	if found != "" {
		t.Errorf("FindLocalConfig() = %q, want empty string", found)
	}
}

func TestLoadWithLocalFallback_ExplicitPath(t *testing.T) {
	chdir(t, t.TempDir())
	path := writeTempConfig(t, "[general]\ndata_dir = \"/explicit\"\n")

	cfg, err := LoadWithLocalFallback(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.DataDir != "/explicit" {
		t.Errorf("DataDir = %q, want /explicit", cfg.General.DataDir)
	}
}

func TestLoadWithLocalFallback_LocalConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, LocalConfigName), []byte("[general]\ndata_dir = \"/from-local\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, root)

	cfg, err := LoadWithLocalFallback("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.DataDir != "/from-local" {
		t.Errorf("DataDir = %q, want /from-local", cfg.General.DataDir)
	}
}

func TestLoadWithLocalFallback_EnvOverrides(t *testing.T) {
	root := t.TempDir()
	chdir(t, root)

	dotenv := "UPGRADE_SCHED_START_DATE=2026-11-09\nUPGRADE_SCHED_HOLIDAYS=2026-12-24, 2026-12-25\n"
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte(dotenv), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("UPGRADE_SCHED_PROD_DAILY_LIMIT", "2")
	// godotenv never overrides variables that are already set
	t.Setenv("UPGRADE_SCHED_START_DATE", "2026-11-16")
	// restore the variable .env is about to set
	t.Setenv("UPGRADE_SCHED_HOLIDAYS", "")
	os.Unsetenv("UPGRADE_SCHED_HOLIDAYS")

	path := writeTempConfig(t, "[schedule]\nstart_date = \"2026-11-02\"\n")
	cfg, err := LoadWithLocalFallback(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Schedule.StartDate != "2026-11-16" {
		t.Errorf("StartDate = %q, want 2026-11-16", cfg.Schedule.StartDate)
	}
	if cfg.Schedule.Prod.DailyLimit != 2 {
		t.Errorf("Prod.DailyLimit = %d, want 2", cfg.Schedule.Prod.DailyLimit)
	}
	if len(cfg.Schedule.Holidays) != 2 || cfg.Schedule.Holidays[1] != "2026-12-25" {
		t.Errorf("Holidays = %v, want [2026-12-24 2026-12-25]", cfg.Schedule.Holidays)
	}
}

func TestLoadWithLocalFallback_BadEnvNumber(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("UPGRADE_SCHED_DEV_DAILY_LIMIT", "many")

	if _, err := LoadWithLocalFallback(writeTempConfig(t, "")); err == nil {
		t.Error("expected error for non-numeric limit")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })
}
