// Package freshness watches the dataset files on disk and reports when they
// go stale, meaning the scheduled updates have stopped landing.
package freshness

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyeborg/virusradar/internal/logger"
)

// Notifier receives staleness alerts. Satisfied by the Telegram notifier.
type Notifier interface {
	NotifyStale(ctx context.Context, dataset string, age time.Duration) error
}

// Status is the freshness of one dataset file.
type Status struct {
	Dataset    string    `json:"dataset"`
	Path       string    `json:"-"`
	ModifiedAt time.Time `json:"modified_at"`
	Age        string    `json:"age"`
	Stale      bool      `json:"stale"`
	Missing    bool      `json:"missing"`
}

// Checker periodically compares dataset file modification times against the
// allowed maximum age. It runs on a configurable interval and can be
// started and stopped.
type Checker struct {
	interval time.Duration
	maxAge   time.Duration
	paths    map[string]string // dataset name -> file path
	notifier Notifier
	logger   *logger.Logger
	ageGauge *prometheus.GaugeVec

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	notified map[string]bool
	mu       sync.RWMutex
}

// NewChecker creates a freshness checker over the given dataset files.
// notifier and reg may be nil.
func NewChecker(intervalMinutes, maxAgeHours int, paths map[string]string, notifier Notifier, log *logger.Logger, reg prometheus.Registerer) *Checker {
	if intervalMinutes <= 0 {
		intervalMinutes = 15
	}
	if maxAgeHours <= 0 {
		maxAgeHours = 48
	}

	ageGauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "virusradar",
		Subsystem: "freshness",
		Name:      "dataset_age_seconds",
		Help:      "Age of each dataset file since its last modification.",
	}, []string{"dataset"})
	if reg != nil {
		reg.MustRegister(ageGauge)
	}

	return &Checker{
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		paths:    paths,
		notifier: notifier,
		logger:   log,
		ageGauge: ageGauge,
		notified: make(map[string]bool),
	}
}

// Start begins the checker loop. Starting an already running checker is a
// no-op.
func (c *Checker) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.started = true

	c.logger.Info("freshness checker started",
		logger.Field{Key: "interval", Value: c.interval},
		logger.Field{Key: "max_age", Value: c.maxAge})

	go c.run()
	return nil
}

// Stop halts the checker loop. Stopping an already stopped checker is a
// no-op.
func (c *Checker) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}

	c.logger.Info("freshness checker stopping")
	c.cancel()
	c.started = false
	return nil
}

func (c *Checker) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("freshness checker stopped")
			return
		case <-ticker.C:
			c.Check(c.ctx)
		}
	}
}

// Check inspects every dataset file once and returns the statuses. Stale
// datasets trigger one notification until they recover.
func (c *Checker) Check(ctx context.Context) []Status {
	now := time.Now()
	statuses := make([]Status, 0, len(c.paths))

	for dataset, path := range c.paths {
		status := Status{Dataset: dataset, Path: path}

		info, err := os.Stat(path)
		if err != nil {
			status.Missing = true
			status.Stale = true
		} else {
			status.ModifiedAt = info.ModTime()
			age := now.Sub(info.ModTime())
			status.Age = age.Round(time.Minute).String()
			status.Stale = age > c.maxAge
			c.ageGauge.WithLabelValues(dataset).Set(age.Seconds())
		}

		c.handleStatus(ctx, status, now)
		statuses = append(statuses, status)
	}

	return statuses
}

func (c *Checker) handleStatus(ctx context.Context, status Status, now time.Time) {
	c.mu.Lock()
	alreadyNotified := c.notified[status.Dataset]
	c.notified[status.Dataset] = status.Stale
	c.mu.Unlock()

	if !status.Stale {
		if alreadyNotified {
			c.logger.Info("dataset fresh again",
				logger.Field{Key: "dataset", Value: status.Dataset})
		}
		return
	}

	age := now.Sub(status.ModifiedAt)
	if status.Missing {
		c.logger.Warn("dataset file missing",
			logger.Field{Key: "dataset", Value: status.Dataset},
			logger.Field{Key: "path", Value: status.Path})
	} else {
		c.logger.Warn("dataset is stale",
			logger.Field{Key: "dataset", Value: status.Dataset},
			logger.Field{Key: "age", Value: age.Round(time.Minute).String()})
	}

	if c.notifier != nil && !alreadyNotified {
		if err := c.notifier.NotifyStale(ctx, status.Dataset, age); err != nil {
			c.logger.Error("failed to send staleness alert", err,
				logger.Field{Key: "dataset", Value: status.Dataset})
		}
	}
}

// Summary returns a one-line freshness summary for health endpoints.
func Summary(statuses []Status) string {
	stale := 0
	for _, s := range statuses {
		if s.Stale {
			stale++
		}
	}
	if stale == 0 {
		return fmt.Sprintf("%d datasets fresh", len(statuses))
	}
	return fmt.Sprintf("%d of %d datasets stale", stale, len(statuses))
}
