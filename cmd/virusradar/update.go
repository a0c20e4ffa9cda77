package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ceyeborg/virusradar/internal/app"
	"github.com/ceyeborg/virusradar/internal/config"
	"github.com/ceyeborg/virusradar/internal/constants"
	"github.com/ceyeborg/virusradar/internal/logger"
)

var updateConfigPath string

// updateCmd represents the update command, run by cron inside the container.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the surveillance datasets once and exit",
	Long: `Fetch the configured GrippeWeb and AMELAG dataset files into the data
directory. This is the command the container's cron schedule runs; it can
also be invoked manually to refresh the data immediately.`,
	Run: updateHandler,
}

func updateHandler(cmd *cobra.Command, args []string) {
	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	configPath := updateConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.UpdateOnce(ctx, cfg, log); err != nil {
		log.Error("dataset update failed", err)
		os.Exit(1)
	}

	log.Info("✅ datasets updated")
}

func init() {
	updateCmd.Flags().StringVarP(&updateConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
