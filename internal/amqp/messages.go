package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"ecobud/internal/jobs"
)

// SyncRequestMessage asks a worker to sync one user's transactions.
// It carries only what the worker needs to fetch and reconcile.
type SyncRequestMessage struct {
	JobID     string    `json:"job_id"`
	Username  string    `json:"username"`
	PageCount int       `json:"page_count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSyncRequestMessage creates a message for job
func NewSyncRequestMessage(job *jobs.SyncJob) *SyncRequestMessage {
	return &SyncRequestMessage{
		JobID:     job.JobID,
		Username:  job.Username,
		PageCount: job.PageCount,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncRequestMessageFromJSON parses and checks a message body
func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Username == "" {
		return nil, errors.New("sync request without username")
	}
	if msg.PageCount < 1 {
		msg.PageCount = 1
	}
	return &msg, nil
}

// Job rebuilds the job the message was published for
func (m *SyncRequestMessage) Job(maxRetries int) *jobs.SyncJob {
	return &jobs.SyncJob{
		JobID:      m.JobID,
		Username:   m.Username,
		PageCount:  m.PageCount,
		Status:     jobs.JobStatusPending,
		CreatedAt:  m.Timestamp,
		MaxRetries: maxRetries,
	}
}
