package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ceyeborg/virusradar/internal/config"
	"github.com/ceyeborg/virusradar/internal/constants"
	"github.com/ceyeborg/virusradar/internal/follower"
	"github.com/ceyeborg/virusradar/internal/logger"
)

// followCmd is the internal companion of the entrypoint command. The
// supervisor starts it as a detached child right before handing off, so the
// scheduler log keeps flowing to the container's stdout after the exec
// replaces the supervisor process.
var followCmd = &cobra.Command{
	Use:    "follow <path>",
	Short:  "Tail a scheduler log file to stdout",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	Run:    followHandler,
}

func followHandler(cmd *cobra.Command, args []string) {
	configPath := os.Getenv("VIRUSRADAR_CONFIG")
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "follow: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "follow: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := follower.New(follower.Config{
		PollInterval:  time.Duration(cfg.Follower.PollIntervalMS) * time.Millisecond,
		FromStart:     cfg.Follower.FromStart,
		FilterPattern: cfg.Follower.FilterPattern,
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "follow: %v\n", err)
		os.Exit(1)
	}

	if err := f.Start(ctx, args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "follow: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()
}
