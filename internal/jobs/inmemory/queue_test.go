package inmemory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecobud/internal/jobs"
)

type retryableErr struct{}

func (retryableErr) Error() string   { return "aggregator down" }
func (retryableErr) Retryable() bool { return true }

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.SyncJob {
	t.Helper()
	var job *jobs.SyncJob
	require.Eventually(t, func() bool {
		var err error
		job, err = store.GetJob(context.Background(), jobID)
		return err == nil && job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestQueue_RunsJob(t *testing.T) {
	store := NewStore(10)
	q := NewQueue(QueueConfig{BufferSize: 4, Workers: 2}, store)
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.Start(context.Background(), func(_ context.Context, job *jobs.SyncJob) (jobs.SyncOutcome, error) {
		return jobs.SyncOutcome{Count: job.PageCount * 10, Inserted: 3}, nil
	}))

	job := jobs.NewSyncJob("alice", 2, 0)
	require.NoError(t, q.PublishSync(context.Background(), job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	require.NotNil(t, done.Result)
	assert.Equal(t, 20, done.Result.Count)
	assert.Equal(t, 3, done.Result.Inserted)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
}

func TestQueue_FullBufferDoesNotBlock(t *testing.T) {
	store := NewStore(10)
	q := NewQueue(QueueConfig{BufferSize: 1, Workers: 1}, store)
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.PublishSync(context.Background(), jobs.NewSyncJob("alice", 1, 0)))
	rejected := jobs.NewSyncJob("alice", 1, 0)
	err := q.PublishSync(context.Background(), rejected)
	assert.ErrorIs(t, err, jobs.ErrQueueFull)

	got, err := store.GetJob(context.Background(), rejected.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, jobs.ErrQueueFull.Error(), got.Error)
}

func TestQueue_WorkersDoNotShareCallerJob(t *testing.T) {
	store := NewStore(100)
	q := NewQueue(QueueConfig{BufferSize: 64, Workers: 4}, store)
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, q.Start(context.Background(), func(_ context.Context, job *jobs.SyncJob) (jobs.SyncOutcome, error) {
		return jobs.SyncOutcome{Count: job.PageCount}, nil
	}))

	published := make([]*jobs.SyncJob, 32)
	var wg sync.WaitGroup
	for i := range published {
		published[i] = jobs.NewSyncJob("alice", i+1, 0)
		wg.Add(1)
		go func(job *jobs.SyncJob) {
			defer wg.Done()
			assert.NoError(t, q.PublishSync(context.Background(), job))
		}(published[i])
	}
	wg.Wait()

	for i, job := range published {
		done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
		require.NotNil(t, done.Result)
		assert.Equal(t, i+1, done.Result.Count)

		assert.Equal(t, jobs.JobStatusPending, job.Status)
		assert.Nil(t, job.StartedAt)
		assert.Nil(t, job.Result)
	}
}

func TestQueue_RetriesOnlyRetryableErrors(t *testing.T) {
	store := NewStore(10)
	q := NewQueue(QueueConfig{BufferSize: 4, Workers: 1, RetryBackoff: time.Millisecond}, store)
	t.Cleanup(func() { _ = q.Close() })

	var calls atomic.Int32
	require.NoError(t, q.Start(context.Background(), func(_ context.Context, job *jobs.SyncJob) (jobs.SyncOutcome, error) {
		calls.Add(1)
		if job.Username == "flaky" {
			return jobs.SyncOutcome{}, retryableErr{}
		}
		return jobs.SyncOutcome{}, errors.New("bad payload")
	}))

	flaky := jobs.NewSyncJob("flaky", 1, 2)
	require.NoError(t, q.PublishSync(context.Background(), flaky))
	got := waitForStatus(t, store, flaky.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "aggregator down", got.Error)

	broken := jobs.NewSyncJob("broken", 1, 2)
	require.NoError(t, q.PublishSync(context.Background(), broken))
	got = waitForStatus(t, store, broken.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 0, got.RetryCount)

	assert.Equal(t, int32(4), calls.Load())
}

func TestQueue_ClosedRejectsPublish(t *testing.T) {
	q := NewQueue(DefaultQueueConfig(), nil)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	err := q.PublishSync(context.Background(), jobs.NewSyncJob("alice", 1, 0))
	assert.ErrorIs(t, err, jobs.ErrQueueClosed)
}

func TestStore_ListAndEvict(t *testing.T) {
	ctx := context.Background()
	store := NewStore(2)

	a := jobs.NewSyncJob("alice", 1, 0)
	b := jobs.NewSyncJob("bob", 1, 0)
	c := jobs.NewSyncJob("alice", 1, 0)
	for _, j := range []*jobs.SyncJob{a, b, c} {
		require.NoError(t, store.SaveJob(ctx, j))
	}

	_, err := store.GetJob(ctx, a.JobID)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	all, err := store.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, c.JobID, all[0].JobID)

	alice, err := store.ListJobs(ctx, jobs.JobFilter{Username: "alice"})
	require.NoError(t, err)
	require.Len(t, alice, 1)

	// stored copies are isolated from the caller
	c.Status = jobs.JobStatusFailed
	got, err := store.GetJob(ctx, c.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, jobs.IsRetryable(retryableErr{}))
	assert.True(t, jobs.IsRetryable(errors.Join(errors.New("x"), retryableErr{})))
	assert.False(t, jobs.IsRetryable(errors.New("plain")))
	assert.False(t, jobs.IsRetryable(nil))
}
