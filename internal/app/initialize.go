package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

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

// Initialize builds and starts all application components.
func (a *App) Initialize(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	cfg := a.config

	// 1. Metrics registry
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 2. Geocoder over the GeoNames dataset
	datasetPath, err := geocode.EnsureDataset(a.ctx, cfg.Geocoder.DatasetURL, cfg.Geocoder.DataDir, a.logger)
	if err != nil {
		return fmt.Errorf("failed to prepare geonames dataset: %w", err)
	}
	a.geocoder, err = geocode.NewFromFile(datasetPath, a.logger)
	if err != nil {
		return fmt.Errorf("failed to load geocoder: %w", err)
	}

	// 3. Viewer localization
	if cfg.Location.Enabled {
		client := location.NewIPInfoClient(
			cfg.Location.IPInfoBaseURL,
			cfg.Location.Token,
			time.Duration(cfg.Location.TimeoutSeconds)*time.Second,
			a.logger,
		)
		a.locations = location.NewManager(client, a.geocoder, a.logger)
	}

	// 4. Dataset sources, updater and store
	sources := cfg.Datasets.Sources
	if cfg.Datasets.ManifestPath != "" {
		sources, err = datasets.LoadManifest(cfg.Datasets.ManifestPath)
		if err != nil {
			return err
		}
	}
	a.updater = datasets.NewUpdater(
		sources,
		cfg.Datasets.DataDir,
		time.Duration(cfg.Datasets.TimeoutSeconds)*time.Second,
		a.logger,
		datasets.NewMetrics(a.registry),
	)
	a.store = datasets.NewStore(
		a.updater.Path(datasets.GrippeWebName),
		a.updater.Path(datasets.AbwasserName),
		a.logger,
	)

	// 5. Telegram alerts
	if cfg.Notify.Telegram.Enabled {
		a.notifier, err = notify.NewTelegramNotifier(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notifier: %w", err)
		}
	}

	// 6. Worker pool with the update and reload executors
	a.workerPool = workers.NewPool(
		cfg.Workers.PoolSize,
		cfg.Workers.QueueSize,
		time.Duration(cfg.Workers.TaskTimeoutSeconds)*time.Second,
		a.logger,
	)
	a.workerPool.RegisterExecutor(workers.TaskUpdate, a.executeUpdate)
	a.workerPool.RegisterExecutor(workers.TaskReload, a.executeReload)
	a.workerPool.Start()
	go a.consumeResults()

	// 7. Scheduler with the recurring update job
	a.scheduler = scheduler.New(a.logger, a.workerPool, a.registry)
	if _, err := a.scheduler.AddJob(scheduler.Job{
		Name:     "dataset-update",
		Schedule: cfg.Scheduler.UpdateSchedule,
		TaskType: workers.TaskUpdate,
	}); err != nil {
		return err
	}
	if err := a.scheduler.Start(a.ctx); err != nil {
		return err
	}

	// 8. Freshness checker
	paths := make(map[string]string, len(sources))
	for _, src := range sources {
		paths[src.Name] = a.updater.Path(src.Name)
	}
	var staleNotifier freshness.Notifier
	if a.notifier != nil {
		staleNotifier = a.notifier
	}
	a.checker = freshness.NewChecker(
		cfg.Freshness.IntervalMinutes,
		cfg.Freshness.MaxAgeHours,
		paths,
		staleNotifier,
		a.logger,
		a.registry,
	)
	if cfg.Freshness.Enabled {
		if err := a.checker.Start(); err != nil {
			return err
		}
	}

	// 9. Initial data: reuse files on disk, otherwise fetch in background
	if err := a.store.Reload(); err != nil {
		a.logger.Warn("no local datasets yet, scheduling initial update",
			logger.Field{Key: "reason", Value: err.Error()})
		a.workerPool.Submit(workers.Task{ID: "initial-update", Type: workers.TaskUpdate})
	}

	// 10. Dashboard server
	a.server = server.New(cfg.Server, server.Options{
		Store:           a.store,
		Geocoder:        a.geocoder,
		Locations:       a.locations,
		Checker:         a.checker,
		Sources:         sources,
		ForecastHorizon: cfg.Server.ForecastHorizon,
		Gatherer:        a.registry,
		Log:             a.logger,
	})
	a.serverErr = make(chan error, 1)
	go func() {
		a.serverErr <- a.server.Start()
	}()

	a.mu.Lock()
	a.started = true
	a.mu.Unlock()

	return nil
}

// executeUpdate downloads all datasets and reloads the store.
func (a *App) executeUpdate(ctx context.Context, _ workers.Task) (string, error) {
	if err := a.updater.UpdateAll(ctx); err != nil {
		return "", err
	}
	if err := a.store.Reload(); err != nil {
		return "", err
	}
	return "datasets updated", nil
}

// executeReload re-parses the dataset files without downloading.
func (a *App) executeReload(_ context.Context, _ workers.Task) (string, error) {
	if err := a.store.Reload(); err != nil {
		return "", err
	}
	return "datasets reloaded", nil
}

// consumeResults drains the worker pool's result channel, logging failures
// and alerting when updates fail or recover.
func (a *App) consumeResults() {
	failing := false
	for result := range a.workerPool.Results() {
		if result.Error == nil {
			if failing && a.notifier != nil {
				if err := a.notifier.NotifyRecovery(a.ctx, "datasets"); err != nil {
					a.logger.Error("failed to send recovery alert", err)
				}
			}
			failing = false
			continue
		}

		a.logger.Error("background task failed", result.Error,
			logger.Field{Key: "task_id", Value: result.TaskID})

		if !failing && a.notifier != nil {
			if err := a.notifier.NotifyUpdateFailure(a.ctx, "datasets", result.Error); err != nil {
				a.logger.Error("failed to send failure alert", err)
			}
		}
		failing = true
	}
}

// UpdateOnce runs a single dataset update synchronously, used by the update
// command outside the serve lifecycle.
func UpdateOnce(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	sources := cfg.Datasets.Sources
	if cfg.Datasets.ManifestPath != "" {
		var err error
		sources, err = datasets.LoadManifest(cfg.Datasets.ManifestPath)
		if err != nil {
			return err
		}
	}

	updater := datasets.NewUpdater(
		sources,
		cfg.Datasets.DataDir,
		time.Duration(cfg.Datasets.TimeoutSeconds)*time.Second,
		log,
		nil,
	)
	if err := updater.UpdateAll(ctx); err != nil {
		return err
	}

	store := datasets.NewStore(
		updater.Path(datasets.GrippeWebName),
		updater.Path(datasets.AbwasserName),
		log,
	)
	return store.Reload()
}
