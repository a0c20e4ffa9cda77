// Package scheduler runs the recurring dataset update jobs. It wraps
// robfig/cron/v3 and hands job execution off to the worker pool, so a slow
// download never delays the next tick.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/ceyeborg/virusradar/internal/logger"
	"github.com/ceyeborg/virusradar/internal/workers"
)

// WorkerPool is the submission surface the scheduler needs.
type WorkerPool interface {
	SubmitWithContext(ctx context.Context, task workers.Task) error
}

// Job is a recurring scheduled task.
type Job struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Schedule string      `json:"schedule"` // cron expression or descriptor like "@hourly"
	TaskType string      `json:"task_type"`
	Payload  interface{} `json:"-"`
}

// Scheduler manages cron job scheduling and execution.
type Scheduler struct {
	cron       *cron.Cron
	logger     *logger.Logger
	workerPool WorkerPool
	runsTotal  *prometheus.CounterVec

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.RWMutex

	jobs        map[string]Job
	jobEntryIDs map[string]cron.EntryID
}

// New creates a scheduler. reg may be nil to skip instrumentation.
func New(log *logger.Logger, pool WorkerPool, reg prometheus.Registerer) *Scheduler {
	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "virusradar",
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Scheduled job executions by job name and status.",
	}, []string{"job", "status"})
	if reg != nil {
		reg.MustRegister(runsTotal)
	}

	return &Scheduler{
		cron:        cron.New(),
		logger:      log,
		workerPool:  pool,
		runsTotal:   runsTotal,
		jobs:        make(map[string]Job),
		jobEntryIDs: make(map[string]cron.EntryID),
	}
}

// Start starts the cron scheduler. It returns immediately; jobs fire on
// their schedules until the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.cron.Start()
	s.logger.Info("scheduler started",
		logger.Field{Key: "jobs", Value: len(s.jobs)})

	go func() {
		<-s.ctx.Done()
		s.cron.Stop()
		s.logger.Info("scheduler stopped")
	}()

	return nil
}

// Stop stops the scheduler gracefully.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return fmt.Errorf("scheduler not started")
	}

	s.cancel()
	s.started = false
	return nil
}

// AddJob registers a recurring job and returns its ID. The schedule is
// validated by the cron parser.
func (s *Scheduler) AddJob(job Job) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.TaskType == "" {
		return "", fmt.Errorf("job %s has no task type", job.Name)
	}

	entryID, err := s.cron.AddFunc(job.Schedule, func() {
		s.executeJob(job)
	})
	if err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", job.Schedule, err)
	}

	s.jobs[job.ID] = job
	s.jobEntryIDs[job.ID] = entryID

	s.logger.Info("job added",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "name", Value: job.Name},
		logger.Field{Key: "schedule", Value: job.Schedule})

	return job.ID, nil
}

// RemoveJob unregisters a job by ID.
func (s *Scheduler) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.jobEntryIDs[id]
	if !ok {
		return fmt.Errorf("unknown job %s", id)
	}

	s.cron.Remove(entryID)
	delete(s.jobs, id)
	delete(s.jobEntryIDs, id)

	s.logger.Info("job removed", logger.Field{Key: "job_id", Value: id})
	return nil
}

// ListJobs returns the registered jobs sorted by name.
func (s *Scheduler) ListJobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}

// RunNow submits a job's task immediately, outside its schedule.
func (s *Scheduler) RunNow(id string) error {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown job %s", id)
	}
	s.executeJob(job)
	return nil
}

// executeJob submits the job's task to the worker pool.
func (s *Scheduler) executeJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.runsTotal.WithLabelValues(job.Name, "panic").Inc()
			s.logger.Error("job panic recovered", fmt.Errorf("panic: %v", r),
				logger.Field{Key: "job_id", Value: job.ID})
		}
	}()

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	task := workers.Task{
		ID:      uuid.New().String(),
		Type:    job.TaskType,
		Payload: job.Payload,
	}

	if err := s.workerPool.SubmitWithContext(ctx, task); err != nil {
		s.runsTotal.WithLabelValues(job.Name, "dropped").Inc()
		s.logger.Error("failed to submit scheduled task", err,
			logger.Field{Key: "job_id", Value: job.ID},
			logger.Field{Key: "name", Value: job.Name})
		return
	}

	s.runsTotal.WithLabelValues(job.Name, "submitted").Inc()
	s.logger.Debug("scheduled task submitted",
		logger.Field{Key: "job_id", Value: job.ID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "name", Value: job.Name})
}
