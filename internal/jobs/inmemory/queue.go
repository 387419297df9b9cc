package inmemory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ecobud/internal/jobs"
)

// QueueConfig sizes the in-process queue
type QueueConfig struct {
	BufferSize   int
	Workers      int
	RetryBackoff time.Duration
}

// DefaultQueueConfig returns sensible defaults
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{BufferSize: 100, Workers: 4, RetryBackoff: 5 * time.Second}
}

// Queue runs sync jobs on a pool of goroutines inside the API process.
// Publishing never blocks: a full buffer is reported as ErrQueueFull.
type Queue struct {
	cfg       QueueConfig
	jobChan   chan *jobs.SyncJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
	started   bool
}

func NewQueue(cfg QueueConfig, store jobs.JobStore) *Queue {
	def := DefaultQueueConfig()
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.Workers < 1 {
		cfg.Workers = def.Workers
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	return &Queue{
		cfg:       cfg,
		jobChan:   make(chan *jobs.SyncJob, cfg.BufferSize),
		closeChan: make(chan struct{}),
		store:     store,
	}
}

// PublishSync records the job as pending and enqueues a copy of it. The
// caller's job is never touched by the workers.
func (q *Queue) PublishSync(ctx context.Context, job *jobs.SyncJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return jobs.ErrQueueClosed
	}
	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	return q.enqueue(ctx, copyJob(job))
}

// enqueue records job before handing it to a worker, after which only that
// worker may touch it. Called with q.mu held for reading.
func (q *Queue) enqueue(ctx context.Context, job *jobs.SyncJob) error {
	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			slog.WarnContext(ctx, "Failed to record queued job", "component", "jobs", "job_id", job.JobID, "error", err)
		}
	}
	select {
	case q.jobChan <- job:
		return nil
	default:
	}
	job.Status = jobs.JobStatusFailed
	job.Error = jobs.ErrQueueFull.Error()
	q.save(ctx, job)
	return jobs.ErrQueueFull
}

// Start launches the workers. ctx bounds every job they run and must not
// be a request context.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return jobs.ErrQueueClosed
	}
	if q.started {
		return nil
	}
	q.started = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			q.processJob(ctx, job, handler)
		}
	}
}

func (q *Queue) save(ctx context.Context, job *jobs.SyncJob) {
	if q.store != nil {
		_ = q.store.SaveJob(ctx, job)
	}
}

func (q *Queue) processJob(ctx context.Context, job *jobs.SyncJob, handler jobs.JobHandler) {
	now := time.Now().UTC()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &now
	q.save(ctx, job)

	outcome, err := handler(ctx, job)

	completed := time.Now().UTC()
	job.CompletedAt = &completed

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		job.Result = &outcome
		q.save(ctx, job)
		return
	}

	job.Error = err.Error()
	if jobs.IsRetryable(err) && job.RetryCount < job.MaxRetries {
		job.RetryCount++
		job.Status = jobs.JobStatusRetrying
		q.save(ctx, job)
		q.scheduleRetry(ctx, job)
		return
	}

	job.Status = jobs.JobStatusFailed
	q.save(ctx, job)
	slog.ErrorContext(ctx, "Sync job failed",
		"component", "jobs",
		"job_id", job.JobID,
		"username", job.Username,
		"retry_count", job.RetryCount,
		"error", err)
}

func (q *Queue) scheduleRetry(ctx context.Context, job *jobs.SyncJob) {
	backoff := q.cfg.RetryBackoff * time.Duration(job.RetryCount)
	time.AfterFunc(backoff, func() {
		q.mu.RLock()
		defer q.mu.RUnlock()
		if q.closed {
			return
		}
		job.Status = jobs.JobStatusPending
		job.StartedAt = nil
		job.CompletedAt = nil
		_ = q.enqueue(ctx, job)
	})
}

// Stop closes the queue and waits for in-flight jobs to finish. Pending
// retries are dropped.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Close() error {
	return q.Stop(context.Background())
}

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)
