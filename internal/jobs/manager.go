// Package jobs runs index maintenance in the background and tracks its
// progress so callers can poll for the outcome.
package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gcbaptista/quicksearch/internal/errors"
	"github.com/gcbaptista/quicksearch/internal/logging"
	"github.com/gcbaptista/quicksearch/model"
)

// DefaultWorkers is used when NewManager is given a non-positive worker count.
const DefaultWorkers = 2

// Func is the body of a job. ctx is cancelled when the manager stops.
type Func func(ctx context.Context, job *model.Job) error

// Manager handles background job execution and tracking
type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*model.Job
	done    map[string]chan struct{}
	workers chan struct{} // limits concurrent jobs
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *Metrics
	logger  *zap.Logger
}

// NewManager creates a job manager running at most maxWorkers jobs at once.
func NewManager(maxWorkers int, logger *zap.Logger) *Manager {
	if maxWorkers <= 0 {
		maxWorkers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		jobs:    make(map[string]*model.Job),
		done:    make(map[string]chan struct{}),
		workers: make(chan struct{}, maxWorkers),
		ctx:     ctx,
		cancel:  cancel,
		metrics: NewMetrics(),
		logger:  logging.OrNop(logger),
	}
}

// Start begins the periodic cleanup of finished jobs.
func (m *Manager) Start() {
	m.logger.Info("job manager started", zap.Int("workers", cap(m.workers)))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.cleanupRoutine()
	}()
}

// Stop cancels running jobs, cancels jobs still waiting for a worker and
// waits for everything to return.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	m.logger.Info("job manager stopped")
}

// CreateJob registers a pending job and returns its ID.
func (m *Manager) CreateJob(jobType model.JobType, index string, metadata map[string]string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &model.Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    model.JobStatusPending,
		Index:     index,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}

	m.jobs[job.ID] = job
	m.done[job.ID] = make(chan struct{})
	m.metrics.RecordCreated(jobType)
	m.logger.Debug("created job",
		zap.String("job_id", job.ID), zap.String("type", string(jobType)), zap.String("index", index))
	return job.ID
}

// Submit creates a job and starts it.
func (m *Manager) Submit(jobType model.JobType, index string, metadata map[string]string, fn Func) (string, error) {
	jobID := m.CreateJob(jobType, index, metadata)
	if err := m.ExecuteJob(jobID, fn); err != nil {
		return "", err
	}
	return jobID, nil
}

// FindActive returns the ID of a pending or running job of jobType on index.
func (m *Manager) FindActive(jobType model.JobType, index string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, job := range m.jobs {
		if job.Type == jobType && job.Index == index && !job.IsTerminal() {
			return id, true
		}
	}
	return "", false
}

// GetJob returns a copy of the job.
func (m *Manager) GetJob(jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns the jobs of index, oldest first, optionally filtered by
// status. An empty index lists jobs of every index.
func (m *Manager) ListJobs(index string, status *model.JobStatus) []*model.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*model.Job, 0)
	for _, job := range m.jobs {
		if index != "" && job.Index != index {
			continue
		}
		if status != nil && job.Status != *status {
			continue
		}
		result = append(result, copyJob(job))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func copyJob(job *model.Job) *model.Job {
	jobCopy := *job
	if job.Progress != nil {
		progressCopy := *job.Progress
		jobCopy.Progress = &progressCopy
	}
	return &jobCopy
}

// ExecuteJob runs fn for a pending job in the background. The job stays
// pending until a worker is free.
func (m *Manager) ExecuteJob(jobID string, fn Func) error {
	m.mu.RLock()
	job, exists := m.jobs[jobID]
	var status model.JobStatus
	if exists {
		status = job.Status
	}
	m.mu.RUnlock()

	if !exists {
		return errors.NewJobNotFoundError(jobID)
	}
	if status != model.JobStatusPending {
		return fmt.Errorf("job with ID '%s' is not in pending status (current: %s)", jobID, status)
	}
	if m.ctx.Err() != nil {
		m.updateJobStatus(jobID, model.JobStatusCancelled, "job manager shutting down")
		return fmt.Errorf("job manager is shutting down")
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		select {
		case m.workers <- struct{}{}:
		case <-m.ctx.Done():
			m.updateJobStatus(jobID, model.JobStatusCancelled, "job manager shutting down")
			return
		}
		defer func() { <-m.workers }()
		if m.ctx.Err() != nil {
			m.updateJobStatus(jobID, model.JobStatusCancelled, "job manager shutting down")
			return
		}

		m.updateJobStatus(jobID, model.JobStatusRunning, "")

		m.mu.RLock()
		snapshot := copyJob(job)
		m.mu.RUnlock()

		start := time.Now()
		err := fn(m.ctx, snapshot)
		elapsed := time.Since(start)

		if err != nil {
			// counters first, so waiters observe them once the job is terminal
			m.metrics.RecordFailed(snapshot.Type)
			m.updateJobStatus(jobID, model.JobStatusFailed, err.Error())
			m.logger.Warn("job failed", zap.String("job_id", jobID),
				zap.String("type", string(snapshot.Type)), zap.Duration("elapsed", elapsed), zap.Error(err))
			return
		}
		m.metrics.RecordCompleted(snapshot.Type, elapsed)
		m.updateJobStatus(jobID, model.JobStatusCompleted, "")
		m.logger.Debug("job completed", zap.String("job_id", jobID),
			zap.String("type", string(snapshot.Type)), zap.Duration("elapsed", elapsed))
	}()

	return nil
}

// Wait blocks until the job reaches a terminal status or ctx is done, and
// returns the job as it is then.
func (m *Manager) Wait(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.RLock()
	done, exists := m.done[jobID]
	m.mu.RUnlock()
	if !exists {
		return nil, errors.NewJobNotFoundError(jobID)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return m.GetJob(jobID)
}

// UpdateJobProgress updates the progress of a running job
func (m *Manager) UpdateJobProgress(jobID string, current, total int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	if job.Progress == nil {
		job.Progress = &model.JobProgress{}
	}
	job.Progress.Current = current
	job.Progress.Total = total
	job.Progress.Message = message
}

func (m *Manager) updateJobStatus(jobID string, status model.JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || job.IsTerminal() {
		return
	}

	oldStatus := job.Status
	job.Status = status
	now := time.Now()
	if errorMsg != "" {
		job.Error = errorMsg
	}
	if status == model.JobStatusRunning {
		job.StartedAt = &now
	}
	if job.IsTerminal() {
		job.CompletedAt = &now
		close(m.done[jobID])
	}

	m.metrics.RecordStatusChange(oldStatus, status)
}

func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CleanupOldJobs(24 * time.Hour)
		case <-m.ctx.Done():
			return
		}
	}
}

// CleanupOldJobs forgets jobs that finished more than maxAge ago.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	cleaned := 0
	for jobID, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, jobID)
			delete(m.done, jobID)
			cleaned++
		}
	}

	if cleaned > 0 {
		m.logger.Info("cleaned up old jobs", zap.Int("count", cleaned))
	}
	return cleaned
}

// Metrics returns a snapshot of the job counters.
func (m *Manager) Metrics() MetricsSnapshot {
	return m.metrics.Snapshot()
}
