package worker

import (
	"context"
	"log/slog"
	"time"

	"ecobud/internal/amqp"
	"ecobud/internal/jobs"
	"ecobud/internal/log"
	"ecobud/internal/services"
)

// Syncer runs one synchronization
type Syncer interface {
	Sync(ctx context.Context, username string, pageCount int) (services.SyncResult, error)
}

// SyncWorker runs sync jobs for both dispatchers: the in-process queue
// calls HandleJob and the AMQP consumer calls HandleSyncMessage.
type SyncWorker struct {
	engine     Syncer
	store      jobs.JobStore
	maxRetries int
}

func NewSyncWorker(engine Syncer, store jobs.JobStore, maxRetries int) *SyncWorker {
	return &SyncWorker{engine: engine, store: store, maxRetries: maxRetries}
}

// HandleJob is a jobs.JobHandler
func (w *SyncWorker) HandleJob(ctx context.Context, job *jobs.SyncJob) (jobs.SyncOutcome, error) {
	start := time.Now()
	result, err := w.engine.Sync(ctx, job.Username, job.PageCount)
	if err != nil {
		slog.WarnContext(ctx, "Sync job attempt failed",
			log.FieldComponent, log.ComponentWorker,
			log.FieldJobID, job.JobID,
			log.FieldUsername, job.Username,
			"attempt", job.RetryCount+1,
			log.FieldError, err)
		return jobs.SyncOutcome{}, err
	}

	slog.InfoContext(ctx, "Sync job completed",
		log.FieldComponent, log.ComponentWorker,
		log.FieldJobID, job.JobID,
		log.FieldUsername, job.Username,
		log.FieldDuration, time.Since(start).Milliseconds())
	return Outcome(result), nil
}

// HandleSyncMessage processes one sync request from AMQP and records its
// progress in the worker's job store.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	job := msg.Job(w.maxRetries)
	now := time.Now().UTC()
	job.Status = jobs.JobStatusRunning
	job.StartedAt = &now
	w.save(ctx, job)

	outcome, err := w.HandleJob(ctx, job)

	done := time.Now().UTC()
	job.CompletedAt = &done
	if err != nil {
		job.Status = jobs.JobStatusFailed
		if jobs.IsRetryable(err) {
			job.Status = jobs.JobStatusRetrying
		}
		job.Error = err.Error()
	} else {
		job.Status = jobs.JobStatusCompleted
		job.Result = &outcome
	}
	w.save(ctx, job)
	return err
}

func (w *SyncWorker) save(ctx context.Context, job *jobs.SyncJob) {
	if w.store == nil || job.JobID == "" {
		return
	}
	if err := w.store.SaveJob(ctx, job); err != nil {
		slog.WarnContext(ctx, "Failed to record job state",
			log.FieldComponent, log.ComponentWorker,
			log.FieldJobID, job.JobID,
			log.FieldError, err)
	}
}

// Outcome converts a sync result into its reportable form
func Outcome(result services.SyncResult) jobs.SyncOutcome {
	return jobs.SyncOutcome{
		Count:      result.Count,
		Inserted:   result.Inserted,
		Merged:     result.Merged,
		ItemErrors: result.ErrorMessages(),
	}
}
