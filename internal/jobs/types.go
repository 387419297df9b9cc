// Package jobs models detached synchronization runs: what is queued, how a
// run is reported, and the ports that queue and record them.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrQueueFull   = errors.New("sync queue is full")
	ErrQueueClosed = errors.New("sync queue is closed")
)

// SyncJob asks for one synchronization of a user's transactions.
type SyncJob struct {
	JobID     string `json:"job_id"`
	Username  string `json:"username"`
	PageCount int    `json:"page_count"`

	Status      JobStatus    `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Error       string       `json:"error,omitempty"`
	Result      *SyncOutcome `json:"result,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// SyncOutcome is the out-of-band report of a finished run
type SyncOutcome struct {
	Count      int      `json:"count"`
	Inserted   int      `json:"inserted"`
	Merged     int      `json:"merged"`
	ItemErrors []string `json:"item_errors,omitempty"`
}

// NewSyncJob creates a pending job with a fresh id
func NewSyncJob(username string, pageCount, maxRetries int) *SyncJob {
	if pageCount < 1 {
		pageCount = 1
	}
	return &SyncJob{
		JobID:      uuid.NewString(),
		Username:   username,
		PageCount:  pageCount,
		Status:     JobStatusPending,
		CreatedAt:  time.Now().UTC(),
		MaxRetries: maxRetries,
	}
}

// Finished reports whether the job reached a terminal status
func (j *SyncJob) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Publisher hands jobs to whatever runs them. PublishSync must not wait
// for the run itself.
type Publisher interface {
	PublishSync(ctx context.Context, job *SyncJob) error
	Close() error
}

// JobHandler runs one job
type JobHandler func(ctx context.Context, job *SyncJob) (SyncOutcome, error)

// Consumer feeds published jobs to a handler
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobFilter narrows ListJobs
type JobFilter struct {
	Username string
	Status   JobStatus
	Limit    int
}

// JobStore records job state for status queries
type JobStore interface {
	SaveJob(ctx context.Context, job *SyncJob) error
	GetJob(ctx context.Context, jobID string) (*SyncJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*SyncJob, error)
}

// Retryable is implemented by errors that are worth another attempt
type Retryable interface {
	Retryable() bool
}

// IsRetryable reports whether any error in err's chain asks for a retry
func IsRetryable(err error) bool {
	var r Retryable
	return errors.As(err, &r) && r.Retryable()
}
