package config

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata" // timezone names resolve without system zoneinfo

	"gopkg.in/yaml.v3"

	"worktime-tracker-backend/internal/attendance"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Portal     PortalConfig     `yaml:"portal"`
	Tracker    TrackerConfig    `yaml:"tracker"`
	Policy     PolicyConfig     `yaml:"policy"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// PortalConfig describes the HR portal REST API.
type PortalConfig struct {
	BaseURL             string            `yaml:"base_url"`
	Endpoints           PortalEndpoints   `yaml:"endpoints"`
	Headers             map[string]string `yaml:"headers"`
	HTTPProxy           string            `yaml:"http_proxy"`
	TimeoutSeconds      int               `yaml:"timeout_seconds"`
	Timeout             time.Duration     `yaml:"-"`
	HolidayCacheMinutes int               `yaml:"holiday_cache_minutes"`
	HolidayCacheTTL     time.Duration     `yaml:"-"`

	// Token is an initial bearer token; PORTAL_TOKEN overrides it.
	Token string `yaml:"token"`
	// TokenFile is kept fresh by the browser helper and read on recovery.
	TokenFile string `yaml:"token_file"`
}

// PortalEndpoints are paths relative to BaseURL.
type PortalEndpoints struct {
	Attendance   string `yaml:"attendance"`
	Holidays     string `yaml:"holidays"`
	LeaveSummary string `yaml:"leave_summary"`
	RangeSummary string `yaml:"range_summary"`
}

// TrackerConfig controls the background evaluator.
type TrackerConfig struct {
	Enabled            bool           `yaml:"enabled"`
	IntervalSeconds    int            `yaml:"interval_seconds"`
	Interval           time.Duration  `yaml:"-"`
	Timezone           string         `yaml:"timezone"`
	Location           *time.Location `yaml:"-"`
	StaleAfterSeconds  int            `yaml:"stale_after_seconds"`
	StaleAfter         time.Duration  `yaml:"-"`
	DebounceMillis     int            `yaml:"debounce_ms"`
	Debounce           time.Duration  `yaml:"-"`
	LiveRefreshSeconds int            `yaml:"live_refresh_seconds"`
}

// PolicyConfig overrides the default targets. Zero values keep the default.
type PolicyConfig struct {
	FullDayMinutes      int     `yaml:"full_day_minutes"`
	HalfDayMinutes      int     `yaml:"half_day_minutes"`
	EarlyFullDayMinutes int     `yaml:"early_full_day_minutes"`
	EarlyHalfDayMinutes int     `yaml:"early_half_day_minutes"`
	FullDayCeiling      int     `yaml:"full_day_ceiling_minutes"`
	HalfDayCeiling      int     `yaml:"half_day_ceiling_minutes"`
	AverageTargetHours  float64 `yaml:"average_target_hours"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	Debug                  bool   `yaml:"debug"`
}

// Attendance returns the effective target policy.
func (p PolicyConfig) Attendance() attendance.Policy {
	policy := attendance.DefaultPolicy()
	override := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	override(&policy.FullDayMinutes, p.FullDayMinutes)
	override(&policy.HalfDayMinutes, p.HalfDayMinutes)
	override(&policy.EarlyFullDayMinutes, p.EarlyFullDayMinutes)
	override(&policy.EarlyHalfDayMinutes, p.EarlyHalfDayMinutes)
	override(&policy.FullDayCeiling, p.FullDayCeiling)
	override(&policy.HalfDayCeiling, p.HalfDayCeiling)
	if p.AverageTargetHours > 0 {
		policy.AverageTargetHours = p.AverageTargetHours
	}
	return policy
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
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	if cfg.Portal.Endpoints.Attendance == "" {
		cfg.Portal.Endpoints.Attendance = "/k/attendance/api/mytime/attendance/summary"
	}
	if cfg.Portal.Endpoints.Holidays == "" {
		cfg.Portal.Endpoints.Holidays = "/k/dashboard/api/dashboard/holidays"
	}
	if cfg.Portal.Endpoints.LeaveSummary == "" {
		cfg.Portal.Endpoints.LeaveSummary = "/k/leave/api/me/leave/summary"
	}
	if cfg.Portal.Endpoints.RangeSummary == "" {
		cfg.Portal.Endpoints.RangeSummary = "/k/attendance/api/mytime/attendance/rangesummary"
	}
	if cfg.Portal.TimeoutSeconds <= 0 {
		cfg.Portal.TimeoutSeconds = 30
	}
	cfg.Portal.Timeout = time.Duration(cfg.Portal.TimeoutSeconds) * time.Second
	if cfg.Portal.HolidayCacheMinutes <= 0 {
		cfg.Portal.HolidayCacheMinutes = 360
	}
	cfg.Portal.HolidayCacheTTL = time.Duration(cfg.Portal.HolidayCacheMinutes) * time.Minute
	if token := os.Getenv("PORTAL_TOKEN"); token != "" {
		cfg.Portal.Token = token
	}

	if cfg.Tracker.IntervalSeconds <= 0 {
		cfg.Tracker.IntervalSeconds = 60
	}
	cfg.Tracker.Interval = time.Duration(cfg.Tracker.IntervalSeconds) * time.Second
	if cfg.Tracker.StaleAfterSeconds <= 0 {
		cfg.Tracker.StaleAfterSeconds = 300
	}
	cfg.Tracker.StaleAfter = time.Duration(cfg.Tracker.StaleAfterSeconds) * time.Second
	if cfg.Tracker.DebounceMillis <= 0 {
		cfg.Tracker.DebounceMillis = 1000
	}
	cfg.Tracker.Debounce = time.Duration(cfg.Tracker.DebounceMillis) * time.Millisecond
	if cfg.Tracker.LiveRefreshSeconds <= 0 {
		cfg.Tracker.LiveRefreshSeconds = 10
	}
	if cfg.Tracker.Timezone == "" {
		cfg.Tracker.Timezone = "Local"
	}
	loc, err := time.LoadLocation(cfg.Tracker.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Tracker.Timezone, err)
	}
	cfg.Tracker.Location = loc

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:worktime.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	return nil
}
