package jobs

import (
	"sync"
	"time"

	"github.com/gcbaptista/quicksearch/model"
)

// maxSamplesPerType bounds the execution times kept per job type.
const maxSamplesPerType = 100

// MetricsSnapshot is a point-in-time copy of the job counters.
type MetricsSnapshot struct {
	Created          int64                     `json:"jobs_created"`
	Completed        int64                     `json:"jobs_completed"`
	Failed           int64                     `json:"jobs_failed"`
	TotalExecution   time.Duration             `json:"total_execution_time_ns"`
	AverageExecution time.Duration             `json:"average_execution_time_ns"`
	SuccessRate      float64                   `json:"success_rate"`
	Workload         int64                     `json:"workload"`
	ByType           map[model.JobType]int64   `json:"jobs_by_type"`
	ByStatus         map[model.JobStatus]int64 `json:"jobs_by_status"`
	LastUpdated      time.Time                 `json:"last_updated"`
}

// Metrics counts jobs by type and status and keeps recent execution times.
type Metrics struct {
	mu             sync.RWMutex
	created        int64
	completed      int64
	failed         int64
	totalExecution time.Duration
	byType         map[model.JobType]int64
	byStatus       map[model.JobStatus]int64
	samples        map[model.JobType][]time.Duration
	lastUpdated    time.Time
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		byType:      make(map[model.JobType]int64),
		byStatus:    make(map[model.JobStatus]int64),
		samples:     make(map[model.JobType][]time.Duration),
		lastUpdated: time.Now(),
	}
}

// RecordCreated counts a new pending job.
func (m *Metrics) RecordCreated(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.created++
	m.byType[jobType]++
	m.byStatus[model.JobStatusPending]++
	m.lastUpdated = time.Now()
}

// RecordStatusChange moves one job between status counters.
func (m *Metrics) RecordStatusChange(oldStatus, newStatus model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldStatus != "" && m.byStatus[oldStatus] > 0 {
		m.byStatus[oldStatus]--
	}
	m.byStatus[newStatus]++
	m.lastUpdated = time.Now()
}

// RecordCompleted counts a successful job and its execution time.
func (m *Metrics) RecordCompleted(jobType model.JobType, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.completed++
	m.totalExecution += elapsed

	samples := append(m.samples[jobType], elapsed)
	if len(samples) > maxSamplesPerType {
		samples = samples[len(samples)-maxSamplesPerType:]
	}
	m.samples[jobType] = samples
	m.lastUpdated = time.Now()
}

// RecordFailed counts a failed job.
func (m *Metrics) RecordFailed(jobType model.JobType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed++
	m.lastUpdated = time.Now()
}

// AverageByType returns the mean of the recent execution times of jobType.
func (m *Metrics) AverageByType(jobType model.JobType) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	samples := m.samples[jobType]
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range samples {
		total += d
	}
	return total / time.Duration(len(samples))
}

// Snapshot returns a copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		Created:        m.created,
		Completed:      m.completed,
		Failed:         m.failed,
		TotalExecution: m.totalExecution,
		SuccessRate:    1.0,
		Workload:       m.byStatus[model.JobStatusPending] + m.byStatus[model.JobStatusRunning],
		ByType:         make(map[model.JobType]int64, len(m.byType)),
		ByStatus:       make(map[model.JobStatus]int64, len(m.byStatus)),
		LastUpdated:    m.lastUpdated,
	}
	if m.completed > 0 {
		snap.AverageExecution = m.totalExecution / time.Duration(m.completed)
	}
	if finished := m.completed + m.failed; finished > 0 {
		snap.SuccessRate = float64(m.completed) / float64(finished)
	}
	for k, v := range m.byType {
		snap.ByType[k] = v
	}
	for k, v := range m.byStatus {
		snap.ByStatus[k] = v
	}
	return snap
}
