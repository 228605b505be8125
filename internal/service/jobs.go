// Package service provides business logic for chatexport operations.
package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a background job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job types.
const (
	JobTypeConvert = "convert"
	JobTypeUpload  = "upload"
)

// Job represents a background export job. Jobs live only for the
// process lifetime, an export rebuilds everything from the archive.
type Job struct {
	ID          string
	Type        string // JobTypeConvert or JobTypeUpload
	Status      JobStatus
	Archive     string // archive path being processed
	Progress    int
	Total       int
	Result      *ExportResult
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// JobManager tracks in-process background jobs.
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*Job),
	}
}

// CreateJob registers a new pending job for an archive.
func (m *JobManager) CreateJob(jobType, archive string, total int) *Job {
	job := &Job{
		ID:        uuid.New().String()[:8], // Short ID for convenience
		Type:      jobType,
		Status:    JobStatusPending,
		Archive:   archive,
		Total:     total,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// UpdateProgress updates job progress.
func (m *JobManager) UpdateProgress(job *Job, current, total int) {
	job.mu.Lock()
	job.Progress = current
	job.Total = total
	if job.Status == JobStatusPending {
		job.Status = JobStatusRunning
	}
	job.mu.Unlock()
}

// SetRunning marks the job as running.
func (m *JobManager) SetRunning(job *Job) {
	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
}

// Complete marks the job as completed with its result.
func (m *JobManager) Complete(job *Job, result *ExportResult) {
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Result = result
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()
}

// Fail marks the job as failed with an error.
func (m *JobManager) Fail(job *Job, err error) {
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = err.Error()
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()
}

// JobSnapshot is a point-in-time copy of job state, safe to pass
// around by value.
type JobSnapshot struct {
	ID          string
	Type        string
	Status      JobStatus
	Archive     string
	Progress    int
	Total       int
	Result      *ExportResult
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Snapshot returns a thread-safe copy of job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return JobSnapshot{
		ID:          j.ID,
		Type:        j.Type,
		Status:      j.Status,
		Archive:     j.Archive,
		Progress:    j.Progress,
		Total:       j.Total,
		Result:      j.Result,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
