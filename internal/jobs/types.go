package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeHandleUtterance represents an utterance interpretation job.
	JobTypeHandleUtterance JobType = "handle_utterance"
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
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
)

// ErrJobNotFound is returned when a job ID does not exist in the store.
var ErrJobNotFound = errors.New("jobs: job not found")

// Result is the outcome an utterance job stores for later retrieval.
type Result struct {
	// Reply is the chat answer, when the utterance was a free-form question.
	Reply string `json:"reply,omitempty"`

	// Summaries describe the operations that succeeded, in order.
	Summaries []string `json:"summaries,omitempty"`

	// Failures describe the operations that were rejected, in order.
	Failures []string `json:"failures,omitempty"`

	// RefreshScopes lists the aggregates invalidated by the mutations.
	RefreshScopes []string `json:"refresh_scopes,omitempty"`
}

// UtteranceJob represents one user utterance queued for interpretation.
//
// Utterance jobs are never retried: the handler may have mutated the
// store before failing, and running it again would double-apply the
// mutation. A failed job surfaces its error to the user instead.
type UtteranceJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// SessionID ties the job to the UI session that submitted it.
	SessionID string `json:"session_id,omitempty"`

	// Text is the raw utterance to interpret.
	Text string `json:"text"`

	// ModeFlag pins the domain when the user submitted from a specific
	// screen; empty means infer from the text.
	ModeFlag string `json:"mode_flag,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// Result holds the outcome once the job completed.
	Result *Result `json:"result,omitempty"`
}

// Publisher defines the interface for publishing jobs to a queue.
// This abstraction allows for different queue implementations.
type Publisher interface {
	// PublishUtterance publishes an utterance interpretation job.
	PublishUtterance(ctx context.Context, job *UtteranceJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one utterance job. The handler fills in the
// job's Result; a returned error marks the job failed.
type JobHandler func(ctx context.Context, job *UtteranceJob) error

// JobStore defines the interface for storing and retrieving job status,
// so the API can answer polls for a job's outcome.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *UtteranceJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*UtteranceJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*UtteranceJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// SessionID filters jobs by the submitting session.
	SessionID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
