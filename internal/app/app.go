// Package app wires the VirusRadar components together: dataset updater,
// geocoder, scheduler, worker pool, freshness checker and the dashboard
// server. It owns their lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyeborg/virusradar/internal/config"
	"github.com/ceyeborg/virusradar/internal/datasets"
	"github.com/ceyeborg/virusradar/internal/freshness"
	"github.com/ceyeborg/virusradar/internal/geocode"
	"github.com/ceyeborg/virusradar/internal/location"
	"github.com/ceyeborg/virusradar/internal/logger"
	"github.com/ceyeborg/virusradar/internal/notify"
	"github.com/ceyeborg/virusradar/internal/scheduler"
	"github.com/ceyeborg/virusradar/internal/server"
	"github.com/ceyeborg/virusradar/internal/workers"
)

// App holds all major components and manages their lifecycle.
type App struct {
	config *config.Config
	logger *logger.Logger

	registry *prometheus.Registry

	geocoder  *geocode.Geocoder
	locations *location.Manager
	updater   *datasets.Updater
	store     *datasets.Store
	notifier  *notify.TelegramNotifier

	workerPool *workers.WorkerPool
	scheduler  *scheduler.Scheduler
	checker    *freshness.Checker
	server     *server.Server

	serverErr chan error

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
}

// New creates an App. Components are built in Initialize.
func New(cfg *config.Config, log *logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
	}
}

// Run starts the application and blocks until the context is cancelled or
// the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	a.logger.Info("application is running")

	select {
	case <-ctx.Done():
	case err := <-a.serverErr:
		if err != nil {
			a.logger.Error("dashboard server failed", err)
			a.Shutdown()
			return err
		}
	}

	return a.Shutdown()
}

// Store exposes the dataset store, used by the update command.
func (a *App) Store() *datasets.Store {
	return a.store
}

// Updater exposes the dataset updater, used by the update command.
func (a *App) Updater() *datasets.Updater {
	return a.updater
}
