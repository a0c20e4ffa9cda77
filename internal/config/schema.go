// Package config provides configuration loading and validation for VirusRadar.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [logging]: Logging level, format, and output
//   - [supervisor]: Container entrypoint behavior (scheduler startup, handoff)
//   - [follower]: Log follower settings (poll interval, line filter)
//   - [geocoder]: GeoNames dataset location and mirror URL
//   - [location]: IP geolocation settings
//   - [datasets]: Surveillance dataset sources and data directory
//   - [scheduler]: Recurring update schedule
//   - [workers]: Background worker pool sizing
//   - [server]: Dashboard HTTP server
//   - [freshness]: Dataset staleness checker
//   - [notify.telegram]: Optional update-failure alerts
//
// Environment variables:
// Values can reference environment variables using ${VAR} or ${VAR:default}
// syntax. For example: token = "${TELEGRAM_TOKEN}"
package config

// Config represents the main application configuration.
type Config struct {
	Logging    LoggingConfig    `toml:"logging"`
	Supervisor SupervisorConfig `toml:"supervisor"`
	Follower   FollowerConfig   `toml:"follower"`
	Geocoder   GeocoderConfig   `toml:"geocoder"`
	Location   LocationConfig   `toml:"location"`
	Datasets   DatasetsConfig   `toml:"datasets"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Workers    WorkersConfig    `toml:"workers"`
	Server     ServerConfig     `toml:"server"`
	Freshness  FreshnessConfig  `toml:"freshness"`
	Notify     NotifyConfig     `toml:"notify"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// SupervisorConfig controls the container entrypoint behavior.
//
// Policy selects the failure semantics when the scheduler daemon cannot be
// started:
//   - "best-effort":   ignore the failure and hand off anyway
//   - "strict":        abort before the primary command runs
//   - "strict-follow": like strict, and additionally follow the scheduler log
type SupervisorConfig struct {
	Policy          string   `toml:"policy"`
	SchedulerBinary string   `toml:"scheduler_binary"`
	StartCommand    []string `toml:"start_command"`
	LogFile         string   `toml:"log_file"`
	EnsureLogFile   bool     `toml:"ensure_log_file"`
}

// FollowerConfig controls the log follower.
type FollowerConfig struct {
	PollIntervalMS int    `toml:"poll_interval_ms"`
	FromStart      bool   `toml:"from_start"`
	FilterPattern  string `toml:"filter_pattern"`
}

// GeocoderConfig controls the GeoNames dataset.
type GeocoderConfig struct {
	DatasetURL string `toml:"dataset_url"`
	MirrorURL  string `toml:"mirror_url"`
	DataDir    string `toml:"data_dir"`
}

// LocationConfig controls IP-based viewer localization.
type LocationConfig struct {
	Enabled        bool   `toml:"enabled"`
	IPInfoBaseURL  string `toml:"ipinfo_base_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// DatasetSource describes one downloadable surveillance dataset.
type DatasetSource struct {
	Name     string `toml:"name" yaml:"name"`
	URL      string `toml:"url" yaml:"url"`
	Filename string `toml:"filename" yaml:"filename"`
	InfoURL  string `toml:"info_url" yaml:"info_url"`
}

// DatasetsConfig controls dataset downloads.
type DatasetsConfig struct {
	DataDir        string          `toml:"data_dir"`
	ManifestPath   string          `toml:"manifest"`
	TimeoutSeconds int             `toml:"timeout_seconds"`
	Sources        []DatasetSource `toml:"sources"`
}

// SchedulerConfig controls the recurring update job.
type SchedulerConfig struct {
	UpdateSchedule string `toml:"update_schedule"`
}

// WorkersConfig controls the background worker pool.
type WorkersConfig struct {
	PoolSize           int `toml:"pool_size"`
	QueueSize          int `toml:"queue_size"`
	TaskTimeoutSeconds int `toml:"task_timeout_seconds"`
}

// ServerConfig controls the dashboard HTTP server.
type ServerConfig struct {
	Listen             string `toml:"listen"`
	ReadTimeoutSeconds int    `toml:"read_timeout_seconds"`
	ForecastHorizon    int    `toml:"forecast_horizon"`
}

// FreshnessConfig controls the dataset staleness checker.
type FreshnessConfig struct {
	Enabled         bool `toml:"enabled"`
	IntervalMinutes int  `toml:"interval_minutes"`
	MaxAgeHours     int  `toml:"max_age_hours"`
}

// NotifyConfig groups notification channels.
type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

// TelegramConfig controls Telegram update-failure alerts.
type TelegramConfig struct {
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
	ChatID  int64  `toml:"chat_id"`
}
