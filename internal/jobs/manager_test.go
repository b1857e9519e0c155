package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalErrors "github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/model"
)

func waitFor(t *testing.T, m *Manager, jobID string) *model.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := m.Wait(ctx, jobID)
	require.NoError(t, err)
	return job
}

func TestJobManager_CreateJob(t *testing.T) {
	manager := NewManager(2, nil)
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeBuildIndex, "search-abc", map[string]string{
		"operation": "test",
	})
	require.NotEmpty(t, jobID)

	job, err := manager.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeBuildIndex, job.Type)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, "search-abc", job.Index)
	assert.Equal(t, "test", job.Metadata["operation"])
}

func TestJobManager_GetJobNotFound(t *testing.T) {
	manager := NewManager(1, nil)
	defer manager.Stop()

	_, err := manager.GetJob("nope")
	assert.True(t, errors.Is(err, internalErrors.ErrJobNotFound))

	_, err = manager.Wait(context.Background(), "nope")
	assert.True(t, errors.Is(err, internalErrors.ErrJobNotFound))

	assert.Error(t, manager.ExecuteJob("nope", func(ctx context.Context, job *model.Job) error { return nil }))
}

func TestJobManager_ExecuteJob(t *testing.T) {
	manager := NewManager(2, nil)
	manager.Start()
	defer manager.Stop()

	jobID := manager.CreateJob(model.JobTypeRefreshIndex, "search-abc", nil)

	err := manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		assert.Equal(t, model.JobStatusRunning, job.Status)
		manager.UpdateJobProgress(jobID, 50, 100, "halfway")
		manager.UpdateJobProgress(jobID, 100, 100, "done")
		return nil
	})
	require.NoError(t, err)

	job := waitFor(t, manager, jobID)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
	require.NotNil(t, job.Progress)
	assert.Equal(t, 100, job.Progress.Current)
	assert.Equal(t, 100.0, job.Progress.GetProgressPercentage())

	err = manager.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error { return nil })
	assert.Error(t, err, "a finished job cannot run again")
}

func TestJobManager_FailedJob(t *testing.T) {
	manager := NewManager(1, nil)
	defer manager.Stop()

	jobID, err := manager.Submit(model.JobTypeBuildIndex, "search-abc", nil, func(ctx context.Context, job *model.Job) error {
		return errors.New("boom")
	})
	require.NoError(t, err)

	job := waitFor(t, manager, jobID)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.Error)

	metrics := manager.Metrics()
	assert.Equal(t, int64(1), metrics.Failed)
	assert.Equal(t, 0.0, metrics.SuccessRate)
	assert.Equal(t, int64(1), metrics.ByStatus[model.JobStatusFailed])
	assert.Zero(t, metrics.Workload)
}

func TestJobManager_WorkerLimit(t *testing.T) {
	manager := NewManager(1, nil)
	defer manager.Stop()

	release := make(chan struct{})
	var running, peak int32
	work := func(ctx context.Context, job *model.Job) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&running, -1)
		return nil
	}

	first, err := manager.Submit(model.JobTypeRefreshIndex, "a", nil, work)
	require.NoError(t, err)
	second, err := manager.Submit(model.JobTypeRefreshIndex, "b", nil, work)
	require.NoError(t, err)

	close(release)
	waitFor(t, manager, first)
	waitFor(t, manager, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestJobManager_FindActive(t *testing.T) {
	manager := NewManager(1, nil)
	defer manager.Stop()

	release := make(chan struct{})
	jobID, err := manager.Submit(model.JobTypeRefreshIndex, "search-abc", nil, func(ctx context.Context, job *model.Job) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	found, ok := manager.FindActive(model.JobTypeRefreshIndex, "search-abc")
	assert.True(t, ok)
	assert.Equal(t, jobID, found)

	_, ok = manager.FindActive(model.JobTypeBuildIndex, "search-abc")
	assert.False(t, ok)

	close(release)
	waitFor(t, manager, jobID)
	_, ok = manager.FindActive(model.JobTypeRefreshIndex, "search-abc")
	assert.False(t, ok)
}

func TestJobManager_ListJobs(t *testing.T) {
	manager := NewManager(1, nil)
	defer manager.Stop()

	a := manager.CreateJob(model.JobTypeBuildIndex, "search-a", nil)
	b := manager.CreateJob(model.JobTypeDestroyIndex, "search-a", nil)
	manager.CreateJob(model.JobTypeBuildIndex, "search-b", nil)

	jobs := manager.ListJobs("search-a", nil)
	require.Len(t, jobs, 2)
	assert.Equal(t, a, jobs[0].ID)
	assert.Equal(t, b, jobs[1].ID)

	assert.Len(t, manager.ListJobs("", nil), 3)

	completed := model.JobStatusCompleted
	assert.Empty(t, manager.ListJobs("search-a", &completed))
	pending := model.JobStatusPending
	assert.Len(t, manager.ListJobs("search-a", &pending), 2)
}

func TestJobManager_StopCancelsJobs(t *testing.T) {
	manager := NewManager(1, nil)

	started := make(chan struct{})
	running, err := manager.Submit(model.JobTypeRefreshIndex, "a", nil, func(ctx context.Context, job *model.Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	queued, err := manager.Submit(model.JobTypeRefreshIndex, "b", nil, func(ctx context.Context, job *model.Job) error {
		return nil
	})
	require.NoError(t, err)

	manager.Stop()

	job, err := manager.GetJob(running)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)

	job, err = manager.GetJob(queued)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, job.Status)

	_, err = manager.Submit(model.JobTypeRefreshIndex, "c", nil, func(ctx context.Context, job *model.Job) error {
		return nil
	})
	assert.Error(t, err)
}

func TestJobManager_CleanupOldJobs(t *testing.T) {
	manager := NewManager(1, nil)
	defer manager.Stop()

	done, err := manager.Submit(model.JobTypeBuildIndex, "a", nil, func(ctx context.Context, job *model.Job) error {
		return nil
	})
	require.NoError(t, err)
	waitFor(t, manager, done)
	pending := manager.CreateJob(model.JobTypeBuildIndex, "a", nil)

	assert.Equal(t, 0, manager.CleanupOldJobs(time.Hour))
	assert.Equal(t, 1, manager.CleanupOldJobs(0))

	_, err = manager.GetJob(done)
	assert.Error(t, err)
	_, err = manager.GetJob(pending)
	assert.NoError(t, err)
}
