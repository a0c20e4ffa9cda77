// Package datasets downloads and parses the RKI surveillance datasets that
// feed the dashboard: GrippeWeb weekly incidence and AMELAG wastewater
// measurements.
package datasets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ceyeborg/virusradar/internal/config"
	"github.com/ceyeborg/virusradar/internal/logger"
	"github.com/ceyeborg/virusradar/internal/retry"
)

// Updater downloads dataset files into the data directory.
type Updater struct {
	sources []config.DatasetSource
	dataDir string
	client  *http.Client
	log     *logger.Logger
	metrics *Metrics
}

// NewUpdater builds an updater. metrics may be nil to skip instrumentation.
func NewUpdater(sources []config.DatasetSource, dataDir string, timeout time.Duration, log *logger.Logger, metrics *Metrics) *Updater {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Updater{
		sources: sources,
		dataDir: dataDir,
		client:  &http.Client{Timeout: timeout},
		log:     log,
		metrics: metrics,
	}
}

// Sources returns the configured dataset sources.
func (u *Updater) Sources() []config.DatasetSource {
	return u.sources
}

// Path returns the local file path for a dataset by name, or "" if unknown.
func (u *Updater) Path(name string) string {
	for _, src := range u.sources {
		if src.Name == name {
			return filepath.Join(u.dataDir, src.Filename)
		}
	}
	return ""
}

// UpdateAll downloads every dataset concurrently. A failure of one dataset
// does not cancel the others; the first error is returned after all
// downloads have finished.
func (u *Updater) UpdateAll(ctx context.Context) error {
	if err := os.MkdirAll(u.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	g := new(errgroup.Group)
	for _, src := range u.sources {
		g.Go(func() error {
			return u.Update(ctx, src)
		})
	}
	return g.Wait()
}

// Update downloads one dataset with retries and an atomic file swap, so a
// failed download never clobbers the previous copy.
func (u *Updater) Update(ctx context.Context, src config.DatasetSource) error {
	target := filepath.Join(u.dataDir, src.Filename)
	start := time.Now()

	u.log.Info("updating dataset",
		logger.Field{Key: "dataset", Value: src.Name},
		logger.Field{Key: "url", Value: src.URL})

	var written int64
	err := retry.Do(ctx, func() error {
		n, err := u.download(ctx, src.URL, target)
		written = n
		return err
	}, retry.Config{})

	if u.metrics != nil {
		u.metrics.UpdateDuration.WithLabelValues(src.Name).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		if u.metrics != nil {
			u.metrics.UpdatesTotal.WithLabelValues(src.Name, "error").Inc()
		}
		return fmt.Errorf("failed to update dataset %s: %w", src.Name, err)
	}

	if u.metrics != nil {
		u.metrics.UpdatesTotal.WithLabelValues(src.Name, "success").Inc()
		u.metrics.LastSuccess.WithLabelValues(src.Name).SetToCurrentTime()
		u.metrics.BytesFetched.WithLabelValues(src.Name).Add(float64(written))
	}

	u.log.Info("dataset updated",
		logger.Field{Key: "dataset", Value: src.Name},
		logger.Field{Key: "bytes", Value: written},
		logger.Field{Key: "duration", Value: time.Since(start).String()})

	return nil
}

func (u *Updater) download(ctx context.Context, url, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp(u.dataDir, ".update-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("failed to move dataset into place: %w", err)
	}
	return written, nil
}
