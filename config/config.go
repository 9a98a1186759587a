package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Report   ReportConfig   `yaml:"report"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
// A DSN starting with "sqlite:" opens a SQLite database instead of PostgreSQL.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
	LogLevel               string `yaml:"log_level"`
}

// ReportConfig controls report generation.
type ReportConfig struct {
	Timezone               string         `yaml:"timezone"`
	Location               *time.Location `yaml:"-"`
	DefaultIntervalMinutes int            `yaml:"default_interval_minutes"`
	MaxRangeDays           int            `yaml:"max_range_days"`
	FacilityCacheSeconds   int            `yaml:"facility_cache_seconds"`
}

// IngestConfig configures polling of the upstream utilization feed.
type IngestConfig struct {
	Enabled         bool           `yaml:"enabled"`
	IntervalSeconds int            `yaml:"interval_seconds"`
	Interval        time.Duration  `yaml:"-"`
	HTTPProxy       string         `yaml:"http_proxy"`
	Workers         int            `yaml:"workers"`
	Timezone        string         `yaml:"timezone"` // of upstream timestamps; defaults to report.timezone
	Location        *time.Location `yaml:"-"`
	Request         IngestRequest  `yaml:"request"`
}

// IngestRequest defines the HTTP request sent to the upstream feed.
type IngestRequest struct {
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
	PageSize int               `yaml:"pageSize"`
	Payload  map[string]any    `yaml:"payload"`
}

// LogConfig selects the logrus level and output format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Report.Timezone == "" {
		cfg.Report.Timezone = "Europe/Helsinki"
	}
	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load report timezone %q: %w", cfg.Report.Timezone, err)
	}
	cfg.Report.Location = loc

	if cfg.Report.DefaultIntervalMinutes <= 0 {
		cfg.Report.DefaultIntervalMinutes = 60
	}
	if cfg.Report.MaxRangeDays <= 0 {
		log.Warnf("report.max_range_days is not set or invalid; defaulting to 366")
		cfg.Report.MaxRangeDays = 366
	}
	if cfg.Report.FacilityCacheSeconds <= 0 {
		cfg.Report.FacilityCacheSeconds = 300
	}

	if cfg.Ingest.IntervalSeconds <= 0 {
		cfg.Ingest.IntervalSeconds = 60
	}
	cfg.Ingest.Interval = time.Duration(cfg.Ingest.IntervalSeconds) * time.Second
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 2
	}
	cfg.Ingest.Location = cfg.Report.Location
	if cfg.Ingest.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Ingest.Timezone)
		if err != nil {
			return fmt.Errorf("failed to load ingest timezone %q: %w", cfg.Ingest.Timezone, err)
		}
		cfg.Ingest.Location = loc
	}
	if cfg.Ingest.Request.PageSize <= 0 {
		cfg.Ingest.Request.PageSize = 100
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return nil
}

// SetupLogging configures the global logrus logger.
func (c LogConfig) SetupLogging() error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	log.SetLevel(level)
	switch c.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid log format %q", c.Format)
	}
	log.SetOutput(os.Stdout)
	return nil
}
