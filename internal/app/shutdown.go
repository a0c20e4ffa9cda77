package app

import (
	"context"
	"time"
)

const shutdownTimeout = 10 * time.Second

// Shutdown stops all components in reverse startup order: server first so
// no new requests arrive, then scheduler, checker and worker pool.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	a.logger.Info("shutting down")

	var firstErr error

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.server.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		cancel()
	}

	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.checker != nil {
		if err := a.checker.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.workerPool != nil {
		a.workerPool.Stop()
	}

	a.cancel()
	a.started = false

	a.logger.Info("shutdown complete")
	return firstErr
}
