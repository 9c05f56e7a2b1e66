// Package jobs runs re-classification sweeps in the background, decoupled
// from the requests that trigger them.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-sort/internal/model"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed after all attempts.
	JobStatusFailed JobStatus = "failed"
)

// SweepJob asks for every stored transaction to be re-classified.
type SweepJob struct {
	// CreatedAt is when the job was submitted.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when a worker picked the job up.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job finished (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ForceMainCategoryID is pinned as main wherever it newly matches.
	ForceMainCategoryID *int `json:"force_main_category_id,omitempty"`

	// ID is the unique identifier for this job.
	ID string `json:"id"`

	// Reason records what triggered the sweep.
	Reason string `json:"reason"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// Result holds the sweep counts once completed.
	Result model.ReclassifyResult `json:"result"`

	// Attempts is how many times the handler ran.
	Attempts int `json:"attempts"`
}

// Handler runs one sweep.
type Handler func(ctx context.Context, job *SweepJob) (model.ReclassifyResult, error)

// Submitter enqueues sweeps without waiting for them to run.
type Submitter interface {
	Submit(ctx context.Context, forceMainCategoryID *int, reason string) (*SweepJob, error)
}

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *SweepJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, id string) (*SweepJob, error)

	// ListJobs retrieves jobs with optional filtering, oldest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*SweepJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int
}

// JobError reports a job that failed after all attempts.
type JobError struct {
	Err error
	Job SweepJob
}

func (e *JobError) Error() string {
	return fmt.Sprintf("sweep %s failed after %d attempts: %v", e.Job.ID, e.Job.Attempts, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}
