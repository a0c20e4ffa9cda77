package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// DefaultDataDir is the default directory for downloaded surveillance datasets
const DefaultDataDir = "./data"

// DefaultCronLogPath is the log file the cron daemon appends to inside the container
const DefaultCronLogPath = "/var/log/cron.log"
