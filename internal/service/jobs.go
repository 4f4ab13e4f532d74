// Package service provides the job, session, ingestion and answering
// logic for vidtalk.
package service

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a background processing job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Progress messages reported while a video is being processed.
const (
	MsgAccepted     = "Job accepted"
	MsgDownloading  = "Downloading video..."
	MsgExtracting   = "Extracting audio and frames..."
	MsgTranscribing = "Transcribing audio..."
	MsgEmbedding    = "Generating embeddings..."
	MsgReady        = "Ready to answer questions!"
)

// TotalStages is the number of pipeline stages a job moves through.
const TotalStages = 5

// Job represents one video processing job. A completed job carries the
// session ID that answers questions about the video.
type Job struct {
	ID          string
	Status      JobStatus
	Message     string
	Stage       int
	SessionID   string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// Snapshot returns a thread-safe copy of job state.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Job{
		ID:          j.ID,
		Status:      j.Status,
		Message:     j.Message,
		Stage:       j.Stage,
		SessionID:   j.SessionID,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

// JobManager tracks background jobs for the lifetime of the process.
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

// Create registers a new pending job and returns it.
func (m *JobManager) Create() *Job {
	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobStatusPending,
		Message:   MsgAccepted,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	slog.Info("job created", "job_id", job.ID)
	return job
}

// Get retrieves a job by ID.
func (m *JobManager) Get(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// List returns all jobs, most recent first.
func (m *JobManager) List() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}

	slices.SortFunc(jobs, func(a, b *Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	return jobs
}

// SetProcessing marks the job as processing and updates its stage message.
func (m *JobManager) SetProcessing(job *Job, stage int, message string) {
	job.mu.Lock()
	job.Status = JobStatusProcessing
	job.Stage = stage
	job.Message = message
	job.mu.Unlock()

	slog.Info("job progress", "job_id", job.ID, "stage", stage, "message", message)
}

// Complete marks the job as completed with its session ID.
func (m *JobManager) Complete(job *Job, sessionID string) {
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Stage = TotalStages
	job.Message = MsgReady
	job.SessionID = sessionID
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	slog.Info("job completed", "job_id", job.ID, "session_id", sessionID)
}

// Fail marks the job as failed with the error.
func (m *JobManager) Fail(job *Job, err error) {
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = err.Error()
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	slog.Error("job failed", "job_id", job.ID, "error", err)
}
