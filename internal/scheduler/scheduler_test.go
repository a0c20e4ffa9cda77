package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyeborg/virusradar/internal/logger"
	"github.com/ceyeborg/virusradar/internal/workers"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

type fakePool struct {
	mu    sync.Mutex
	tasks []workers.Task
	err   error
}

func (p *fakePool) SubmitWithContext(_ context.Context, task workers.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *fakePool) submitted() []workers.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]workers.Task(nil), p.tasks...)
}

func TestAddJobValidatesSchedule(t *testing.T) {
	s := New(testLogger(t), &fakePool{}, nil)

	_, err := s.AddJob(Job{Name: "update", Schedule: "not a schedule", TaskType: workers.TaskUpdate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")

	_, err = s.AddJob(Job{Name: "update", Schedule: "@hourly"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no task type")

	id, err := s.AddJob(Job{Name: "update", Schedule: "@hourly", TaskType: workers.TaskUpdate})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestListAndRemoveJobs(t *testing.T) {
	s := New(testLogger(t), &fakePool{}, nil)

	idB, err := s.AddJob(Job{Name: "beta", Schedule: "@daily", TaskType: workers.TaskUpdate})
	require.NoError(t, err)
	_, err = s.AddJob(Job{Name: "alpha", Schedule: "@hourly", TaskType: workers.TaskReload})
	require.NoError(t, err)

	jobs := s.ListJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "alpha", jobs[0].Name)
	assert.Equal(t, "beta", jobs[1].Name)

	require.NoError(t, s.RemoveJob(idB))
	assert.Len(t, s.ListJobs(), 1)

	err = s.RemoveJob("missing")
	require.Error(t, err)
}

func TestRunNowSubmitsTask(t *testing.T) {
	pool := &fakePool{}
	reg := prometheus.NewRegistry()
	s := New(testLogger(t), pool, reg)

	id, err := s.AddJob(Job{Name: "update", Schedule: "@hourly", TaskType: workers.TaskUpdate})
	require.NoError(t, err)

	require.NoError(t, s.RunNow(id))

	tasks := pool.submitted()
	require.Len(t, tasks, 1)
	assert.Equal(t, workers.TaskUpdate, tasks[0].Type)
	assert.NotEmpty(t, tasks[0].ID)

	count := testutil.ToFloat64(s.runsTotal.WithLabelValues("update", "submitted"))
	assert.Equal(t, 1.0, count)

	require.Error(t, s.RunNow("missing"))
}

func TestRunNowCountsDrops(t *testing.T) {
	pool := &fakePool{err: errors.New("queue full")}
	s := New(testLogger(t), pool, nil)

	id, err := s.AddJob(Job{Name: "update", Schedule: "@hourly", TaskType: workers.TaskUpdate})
	require.NoError(t, err)

	require.NoError(t, s.RunNow(id))
	assert.Empty(t, pool.submitted())

	count := testutil.ToFloat64(s.runsTotal.WithLabelValues("update", "dropped"))
	assert.Equal(t, 1.0, count)
}

func TestStartStopLifecycle(t *testing.T) {
	s := New(testLogger(t), &fakePool{}, nil)

	require.NoError(t, s.Start(t.Context()))
	assert.Error(t, s.Start(t.Context()))

	require.NoError(t, s.Stop())
	assert.Error(t, s.Stop())
}
