// Package workers provides an async worker pool for background task
// execution. Dataset refreshes and store reloads run here so scheduler
// ticks and HTTP handlers never block on network or disk.
package workers

import (
	"context"
	"time"
)

// Task types handled by the pool.
const (
	TaskUpdate = "update" // download the surveillance datasets
	TaskReload = "reload" // re-parse dataset files into the store
)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier
	Type    string          // Task type: "update" or "reload"
	Payload interface{}     // Task payload (dataset source, file path)
	Context context.Context // Task-specific context for cancellation/timeout
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string        // ID of the executed task
	Error    error         // Error if execution failed
	Output   string        // Task output
	Duration time.Duration // Execution duration
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
}

// TaskExecutor defines the execution logic for one task type.
type TaskExecutor func(context.Context, Task) (string, error)

// Defaults for pool configuration.
const (
	DefaultTaskTimeout = 5 * time.Minute
	DefaultPoolSize    = 2
	DefaultQueueSize   = 16
)
