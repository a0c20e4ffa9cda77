package constants

// DefaultVersion is the default version of the application
const DefaultVersion = "0.1.0-dev"

// DefaultUpdateSchedule is the cron expression for the recurring dataset update.
// The hourly cadence matches the crontab entry baked into the container image.
const DefaultUpdateSchedule = "@hourly"

// DefaultSchedulerBinary is the periodic-task scheduler the supervisor probes for
const DefaultSchedulerBinary = "cron"

// DefaultListenAddr is the default dashboard listen address
const DefaultListenAddr = ":8501"
