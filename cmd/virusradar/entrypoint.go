package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ceyeborg/virusradar/internal/config"
	"github.com/ceyeborg/virusradar/internal/constants"
	"github.com/ceyeborg/virusradar/internal/logger"
	"github.com/ceyeborg/virusradar/internal/supervisor"
)

// entrypointCmd is the container entrypoint. It starts the OS cron daemon
// if one is installed, optionally follows its log, and then hands the
// process over to the given command.
//
// Flag parsing is disabled so the wrapped command's arguments reach it
// byte-for-byte, flags included.
var entrypointCmd = &cobra.Command{
	Use:   "entrypoint -- command [args...]",
	Short: "Container entrypoint: start cron, then exec the command",
	Long: `Run as PID 1 inside the container. Starts the system cron daemon (which
drives the scheduled dataset updates), optionally tails its log file, and
then replaces itself with the given command so signals and exit status
belong to that command.

The configuration file is looked up at the default path or at
$VIRUSRADAR_CONFIG; a missing file falls back to built-in defaults.`,
	DisableFlagParsing: true,
	Run:                entrypointHandler,
}

func entrypointHandler(cmd *cobra.Command, args []string) {
	// Strip the conventional argument separator
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}
	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		cmd.Help()
		return
	}

	configPath := os.Getenv("VIRUSRADAR_CONFIG")
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "entrypoint: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "entrypoint: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	policy, err := supervisor.ParsePolicy(cfg.Supervisor.Policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "entrypoint: %v\n", err)
		os.Exit(1)
	}

	// The follower runs as a separate process (see the follow command), so it
	// survives the exec handoff and keeps the scheduler log visible.
	sup := supervisor.New(supervisor.Config{
		Policy:          policy,
		SchedulerBinary: cfg.Supervisor.SchedulerBinary,
		StartCommand:    cfg.Supervisor.StartCommand,
		LogFile:         cfg.Supervisor.LogFile,
		EnsureLogFile:   cfg.Supervisor.EnsureLogFile,
	}, log)

	err = sup.Run(context.Background(), args)
	if err == nil {
		// Reached only on platforms without exec replacement, when the
		// child exited cleanly
		return
	}

	var exitErr *supervisor.ExitStatusError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintf(os.Stderr, "entrypoint: %v\n", err)
	os.Exit(1)
}
