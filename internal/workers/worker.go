package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/ceyeborg/virusradar/internal/logger"
)

// worker is the main worker goroutine that processes tasks from the queue.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panic recovered",
				fmt.Errorf("panic: %v", r),
				logger.Field{Key: "worker_id", Value: id})
		}
	}()

	p.logger.DebugCtx(p.ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for {
		select {
		case task := <-p.taskQueue:
			p.processTask(id, task)

		case <-p.ctx.Done():
			p.logger.DebugCtx(p.ctx, "worker stopping",
				logger.Field{Key: "worker_id", Value: id})
			return
		}
	}
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) {
	startTime := time.Now()

	p.logger.DebugCtx(p.ctx, "processing task",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	// Use task context if provided, otherwise use pool context
	execCtx := p.ctx
	if task.Context != nil {
		execCtx = task.Context
	}
	execCtx, cancel := context.WithTimeout(execCtx, p.taskTimeout)
	defer cancel()

	result := p.executeTask(execCtx, task)
	result.Duration = time.Since(startTime)

	if result.Error != nil {
		p.incrementFailed()
	} else {
		p.incrementCompleted()
	}
	p.recordDuration(result.Duration)

	select {
	case p.resultCh <- result:
	case <-p.ctx.Done():
		p.logger.WarnCtx(p.ctx, "failed to send result, pool shutting down",
			logger.Field{Key: "task_id", Value: task.ID})
	}

	p.logger.DebugCtx(p.ctx, "task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()},
		logger.Field{Key: "error", Value: result.Error})
}

// executeTask dispatches task execution to the registered executor.
func (p *WorkerPool) executeTask(ctx context.Context, task Task) Result {
	select {
	case <-ctx.Done():
		return Result{TaskID: task.ID, Error: ctx.Err()}
	default:
	}

	executor, ok := p.executors[task.Type]
	if !ok {
		return Result{
			TaskID: task.ID,
			Error:  fmt.Errorf("unknown task type: %s", task.Type),
		}
	}

	return p.executeRecovered(ctx, task, executor)
}

// executeRecovered runs the executor with panic recovery and context
// cancellation.
func (p *WorkerPool) executeRecovered(ctx context.Context, task Task, executor TaskExecutor) Result {
	done := make(chan struct{})
	var output string
	var err error

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic during task execution: %v", r)
				p.logger.ErrorCtx(ctx, "task panic recovered", fmt.Errorf("panic: %v", r),
					logger.Field{Key: "task_id", Value: task.ID})
			}
		}()

		output, err = executor(ctx, task)
	}()

	select {
	case <-done:
		return Result{TaskID: task.ID, Output: output, Error: err}
	case <-ctx.Done():
		return Result{TaskID: task.ID, Error: ctx.Err()}
	}
}
