package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"ecobud/internal/jobs"
)

// Store keeps job state in memory. It is lost on restart.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*jobs.SyncJob
	maxJobs int
	order   []string
}

// NewStore creates a store that forgets the oldest jobs beyond maxJobs
func NewStore(maxJobs int) *Store {
	if maxJobs < 1 {
		maxJobs = 1000
	}
	return &Store{
		jobs:    make(map[string]*jobs.SyncJob),
		maxJobs: maxJobs,
	}
}

func copyJob(job *jobs.SyncJob) *jobs.SyncJob {
	c := *job
	if job.Result != nil {
		outcome := *job.Result
		outcome.ItemErrors = slices.Clone(job.Result.ItemErrors)
		c.Result = &outcome
	}
	return &c
}

func (s *Store) SaveJob(_ context.Context, job *jobs.SyncJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.JobID]; !exists {
		s.order = append(s.order, job.JobID)
		if len(s.order) > s.maxJobs {
			delete(s.jobs, s.order[0])
			s.order = s.order[1:]
		}
	}
	s.jobs[job.JobID] = copyJob(job)
	return nil
}

func (s *Store) GetJob(_ context.Context, jobID string) (*jobs.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	return copyJob(job), nil
}

// ListJobs returns matching jobs, most recently created first
func (s *Store) ListJobs(_ context.Context, filter jobs.JobFilter) ([]*jobs.SyncJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.SyncJob
	for i := len(s.order) - 1; i >= 0; i-- {
		job := s.jobs[s.order[i]]
		if filter.Username != "" && job.Username != filter.Username {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		result = append(result, copyJob(job))
		if filter.Limit > 0 && len(result) == filter.Limit {
			break
		}
	}
	return result, nil
}

var _ jobs.JobStore = (*Store)(nil)
