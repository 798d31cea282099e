package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/hochfrequenz/upgrade-scheduler/internal/calendar"
	"github.com/hochfrequenz/upgrade-scheduler/internal/domain"
	"github.com/hochfrequenz/upgrade-scheduler/internal/scheduler"
)

// LocalConfigName is the per-project config file searched from the working directory upward
const LocalConfigName = ".upgrade-sched.toml"

// EnvPrefix prefixes every environment override
const EnvPrefix = "UPGRADE_SCHED_"

// Config holds all application configuration
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Schedule ScheduleConfig `toml:"schedule"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
	DataDir      string `toml:"data_dir"`
}

// ScheduleConfig holds the run parameters
type ScheduleConfig struct {
	StartDate        string     `toml:"start_date"`
	SortBy           string     `toml:"sort_by"`
	Holidays         []string   `toml:"holidays"`
	MaxLookaheadDays int        `toml:"max_lookahead_days"`
	ReconcileSweeps  int        `toml:"reconcile_sweeps"`
	Dev              ModeConfig `toml:"dev"`
	Prod             ModeConfig `toml:"prod"`
	// RefreshCron makes watch reschedule periodically, e.g. "0 6 * * MON". Empty disables it.
	RefreshCron string `toml:"refresh_cron"`
}

// ModeConfig holds capacity and calendar of one mode.
// AllowedDays is a cron day-of-week field such as "MON-FRI" or "1,3,5".
type ModeConfig struct {
	DailyLimit  int    `toml:"daily_limit"`
	AllowedDays string `toml:"allowed_days"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	// Textfile is written in the prometheus text format after each run. Empty disables it.
	Textfile string `toml:"textfile"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".upgrade-scheduler", "scheduler.db"),
			DataDir:      "data",
		},
		Schedule: ScheduleConfig{
			SortBy:           string(domain.SortByType),
			MaxLookaheadDays: 366,
			ReconcileSweeps:  1,
			Dev: ModeConfig{
				DailyLimit:  20,
				AllowedDays: "MON-FRI",
			},
			Prod: ModeConfig{
				DailyLimit:  10,
				AllowedDays: "TUE-THU",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandPaths()
	return cfg, nil
}

// LoadWithLocalFallback loads the explicit path if given, otherwise the
// nearest local config, otherwise the user config. A .env file in the
// working directory is read first and UPGRADE_SCHED_* variables override
// the file values.
func LoadWithLocalFallback(explicitPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	path := explicitPath
	if path == "" {
		path = FindLocalConfig()
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindLocalConfig walks from the working directory to the filesystem root
// and returns the first LocalConfigName found, or "".
func FindLocalConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func (c *Config) expandPaths() {
	c.General.DatabasePath = ExpandPath(c.General.DatabasePath)
	c.General.DataDir = ExpandPath(c.General.DataDir)
	c.Metrics.Textfile = ExpandPath(c.Metrics.Textfile)
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"DATABASE_PATH":     &c.General.DatabasePath,
		"DATA_DIR":          &c.General.DataDir,
		"START_DATE":        &c.Schedule.StartDate,
		"SORT_BY":           &c.Schedule.SortBy,
		"DEV_ALLOWED_DAYS":  &c.Schedule.Dev.AllowedDays,
		"PROD_ALLOWED_DAYS": &c.Schedule.Prod.AllowedDays,
		"REFRESH_CRON":      &c.Schedule.RefreshCron,
		"LOG_LEVEL":         &c.Logging.Level,
		"LOG_FORMAT":        &c.Logging.Format,
		"METRICS_TEXTFILE":  &c.Metrics.Textfile,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"DEV_DAILY_LIMIT":  &c.Schedule.Dev.DailyLimit,
		"PROD_DAILY_LIMIT": &c.Schedule.Prod.DailyLimit,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv(EnvPrefix + "HOLIDAYS"); ok {
		c.Schedule.Holidays = splitList(v)
	}

	c.expandPaths()
	return nil
}

// Params converts the schedule section into run parameters
func (c *Config) Params() (scheduler.Params, error) {
	s := c.Schedule

	dev, err := modeParams(s.Dev)
	if err != nil {
		return scheduler.Params{}, fmt.Errorf("schedule.dev: %w", err)
	}
	prod, err := modeParams(s.Prod)
	if err != nil {
		return scheduler.Params{}, fmt.Errorf("schedule.prod: %w", err)
	}

	sortBy, err := domain.ParseSortKey(s.SortBy)
	if err != nil {
		return scheduler.Params{}, fmt.Errorf("schedule.sort_by: %w", err)
	}

	var start time.Time
	if s.StartDate != "" {
		start, err = calendar.ParseDate(s.StartDate)
		if err != nil {
			return scheduler.Params{}, fmt.Errorf("schedule.start_date: %w", err)
		}
	}

	holidays := make([]time.Time, 0, len(s.Holidays))
	for _, h := range s.Holidays {
		d, err := calendar.ParseDate(h)
		if err != nil {
			return scheduler.Params{}, fmt.Errorf("schedule.holidays: %w", err)
		}
		holidays = append(holidays, d)
	}

	return scheduler.Params{
		Dev:              dev,
		Prod:             prod,
		Holidays:         holidays,
		SortBy:           sortBy,
		StartDate:        start,
		MaxLookaheadDays: s.MaxLookaheadDays,
		ReconcileSweeps:  s.ReconcileSweeps,
	}, nil
}

func modeParams(m ModeConfig) (scheduler.ModeParams, error) {
	days, err := calendar.ParseWeekdays(m.AllowedDays)
	if err != nil {
		return scheduler.ModeParams{}, err
	}
	return scheduler.ModeParams{DailyLimit: m.DailyLimit, AllowedDays: days}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "upgrade-scheduler", "config.toml")
}
