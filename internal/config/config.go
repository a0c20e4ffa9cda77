package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ceyeborg/virusradar/internal/constants"
)

// Load reads, parses, and normalizes the TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := expandEnvVars(&cfg); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads the config file if it exists, otherwise returns the
// built-in defaults. The supervisor uses this so a container without a
// config file still has working entrypoint behavior.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return Load(path)
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate checks the configuration and returns all problems found.
func (c *Config) Validate() []error {
	var errors []error

	// Logging
	if c.Logging.Level == "" {
		errors = append(errors, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format == "" {
		errors = append(errors, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Logging.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	// Supervisor
	switch c.Supervisor.Policy {
	case "best-effort", "strict", "strict-follow":
	default:
		errors = append(errors, fmt.Errorf("invalid supervisor.policy: %s (expected: best-effort, strict, strict-follow)", c.Supervisor.Policy))
	}
	if c.Supervisor.SchedulerBinary == "" {
		errors = append(errors, fmt.Errorf("supervisor.scheduler_binary is required"))
	}
	if len(c.Supervisor.StartCommand) == 0 {
		errors = append(errors, fmt.Errorf("supervisor.start_command is required"))
	}

	// Datasets
	if c.Datasets.DataDir == "" {
		errors = append(errors, fmt.Errorf("datasets.data_dir is required"))
	} else if err := validatePath(c.Datasets.DataDir, "datasets.data_dir"); err != nil {
		errors = append(errors, err)
	}
	for i, src := range c.Datasets.Sources {
		if src.Name == "" {
			errors = append(errors, fmt.Errorf("datasets.sources[%d].name is required", i))
		}
		if err := validateURL(src.URL, fmt.Sprintf("datasets.sources[%d].url", i)); err != nil {
			errors = append(errors, err)
		}
	}

	// Geocoder
	if err := validateURL(c.Geocoder.DatasetURL, "geocoder.dataset_url"); err != nil {
		errors = append(errors, err)
	}
	if err := validatePath(c.Geocoder.DataDir, "geocoder.data_dir"); err != nil {
		errors = append(errors, err)
	}

	// Location
	if c.Location.Enabled {
		if err := validateURL(c.Location.IPInfoBaseURL, "location.ipinfo_base_url"); err != nil {
			errors = append(errors, err)
		}
	}

	// Workers
	if c.Workers.PoolSize <= 0 {
		errors = append(errors, fmt.Errorf("workers.pool_size must be positive"))
	}
	if c.Workers.QueueSize <= 0 {
		errors = append(errors, fmt.Errorf("workers.queue_size must be positive"))
	}

	// Server
	if c.Server.Listen == "" {
		errors = append(errors, fmt.Errorf("server.listen is required"))
	}

	// Telegram notifications
	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.Token == "" {
			errors = append(errors, fmt.Errorf("notify.telegram.token is required when telegram notifications are enabled"))
		} else if err := validateTelegramToken(c.Notify.Telegram.Token); err != nil {
			errors = append(errors, err)
		}
		if c.Notify.Telegram.ChatID == 0 {
			errors = append(errors, fmt.Errorf("notify.telegram.chat_id is required when telegram notifications are enabled"))
		}
	}

	return errors
}

// Helper validation functions
func validateURL(url, fieldName string) error {
	if url == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%s must start with http:// or https:// (got: %s)", fieldName, url)
	}

	return nil
}

func validateTelegramToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("telegram token has invalid format (expected format: <bot_id>:<token>, got: %s)", maskSecret(token))
	}

	botID := parts[0]
	botToken := parts[1]

	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}

	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}

	if len(botToken) < 10 || len(botToken) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(botToken))
	}

	return nil
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if strings.HasPrefix(path, "~") {
		return nil
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}

	return nil
}

// applyDefaults fills in default values for unset fields.
func applyDefaults(c *Config) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Supervisor.Policy == "" {
		c.Supervisor.Policy = "strict-follow"
	}
	if c.Supervisor.SchedulerBinary == "" {
		c.Supervisor.SchedulerBinary = constants.DefaultSchedulerBinary
	}
	if len(c.Supervisor.StartCommand) == 0 {
		c.Supervisor.StartCommand = []string{"service", "cron", "start"}
	}
	if c.Supervisor.LogFile == "" {
		c.Supervisor.LogFile = constants.DefaultCronLogPath
	}

	if c.Follower.PollIntervalMS == 0 {
		c.Follower.PollIntervalMS = 500
	}

	if c.Geocoder.DatasetURL == "" {
		c.Geocoder.DatasetURL = "https://download.geonames.org/export/dump/cities1000.zip"
	}
	if c.Geocoder.MirrorURL == "" {
		c.Geocoder.MirrorURL = "https://download.geonames.org/export/dump/"
	}
	if c.Geocoder.DataDir == "" {
		c.Geocoder.DataDir = "./cities1000"
	}

	if c.Location.IPInfoBaseURL == "" {
		c.Location.IPInfoBaseURL = "https://ipinfo.io"
	}
	if c.Location.TimeoutSeconds == 0 {
		c.Location.TimeoutSeconds = 5
	}

	if c.Datasets.DataDir == "" {
		c.Datasets.DataDir = constants.DefaultDataDir
	}
	if c.Datasets.TimeoutSeconds == 0 {
		c.Datasets.TimeoutSeconds = 60
	}
	if len(c.Datasets.Sources) == 0 && c.Datasets.ManifestPath == "" {
		c.Datasets.Sources = DefaultSources()
	}

	if c.Scheduler.UpdateSchedule == "" {
		c.Scheduler.UpdateSchedule = constants.DefaultUpdateSchedule
	}

	if c.Workers.PoolSize == 0 {
		c.Workers.PoolSize = 2
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 16
	}
	if c.Workers.TaskTimeoutSeconds == 0 {
		c.Workers.TaskTimeoutSeconds = 300
	}

	if c.Server.Listen == "" {
		c.Server.Listen = constants.DefaultListenAddr
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.ForecastHorizon == 0 {
		c.Server.ForecastHorizon = 24
	}

	if c.Freshness.IntervalMinutes == 0 {
		c.Freshness.IntervalMinutes = 30
	}
	if c.Freshness.MaxAgeHours == 0 {
		c.Freshness.MaxAgeHours = 26
	}
}

// DefaultSources returns the built-in RKI dataset sources mirrored on GitHub.
func DefaultSources() []DatasetSource {
	return []DatasetSource{
		{
			Name:     "grippeweb",
			URL:      "https://raw.githubusercontent.com/robert-koch-institut/GrippeWeb_Daten_des_Wochenberichts/main/GrippeWeb_Daten_des_Wochenberichts.tsv",
			Filename: "GrippeWeb_Daten_des_Wochenberichts.tsv",
			InfoURL:  "https://github.com/robert-koch-institut/GrippeWeb_Daten_des_Wochenberichts",
		},
		{
			Name:     "abwasser",
			URL:      "https://raw.githubusercontent.com/robert-koch-institut/Abwassersurveillance_AMELAG/main/amelag_einzelstandorte.tsv",
			Filename: "amelag_einzelstandorte.tsv",
			InfoURL:  "https://github.com/robert-koch-institut/Abwassersurveillance_AMELAG",
		},
	}
}

// expandEnvVars expands environment variable references in secret and path fields.
func expandEnvVars(c *Config) error {
	if strings.HasPrefix(c.Notify.Telegram.Token, "${") {
		c.Notify.Telegram.Token = expandEnv(c.Notify.Telegram.Token)
	}

	if strings.HasPrefix(c.Location.Token, "${") {
		c.Location.Token = expandEnv(c.Location.Token)
	}

	if strings.HasPrefix(c.Datasets.DataDir, "${") {
		c.Datasets.DataDir = expandEnv(c.Datasets.DataDir)
	}
	c.Datasets.DataDir = expandHome(c.Datasets.DataDir)

	if strings.HasPrefix(c.Geocoder.DataDir, "${") {
		c.Geocoder.DataDir = expandEnv(c.Geocoder.DataDir)
	}
	c.Geocoder.DataDir = expandHome(c.Geocoder.DataDir)

	c.Logging.Output = expandHome(c.Logging.Output)

	return nil
}

// expandEnv expands a reference of the form ${VAR} or ${VAR:default}.
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		key := parts[0]
		defaultVal := parts[1]
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	return os.Getenv(s[2:end])
}

// expandHome expands a leading ~ in paths.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
