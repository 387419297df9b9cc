package services

import (
	"context"
	"fmt"
	"log/slog"

	"ecobud/internal/core"
	"ecobud/internal/jobs"
	"ecobud/internal/log"
	"ecobud/internal/storage"
)

// TransactionService serves the read and user-edit paths. Listing kicks off
// a detached sync and returns what the store holds right now.
type TransactionService struct {
	store      storage.TransactionStore
	engine     *SyncEngine
	publisher  jobs.Publisher
	pageCount  int
	maxRetries int
}

func NewTransactionService(store storage.TransactionStore, engine *SyncEngine, publisher jobs.Publisher, pageCount, maxRetries int) *TransactionService {
	if pageCount < 1 {
		pageCount = 1
	}
	return &TransactionService{
		store:      store,
		engine:     engine,
		publisher:  publisher,
		pageCount:  pageCount,
		maxRetries: maxRetries,
	}
}

// List returns the user's visible transactions. A failure to schedule the
// background sync is logged and never fails the listing.
func (s *TransactionService) List(ctx context.Context, username string) ([]core.Transaction, error) {
	if _, err := s.RequestSync(ctx, username); err != nil {
		slog.WarnContext(ctx, "Failed to schedule background sync",
			log.FieldComponent, log.ComponentJobs,
			log.FieldUsername, username,
			log.FieldError, err)
	}

	txs, err := s.store.FindMany(ctx, username, storage.DefaultListOptions())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// RequestSync publishes a sync job without waiting for it
func (s *TransactionService) RequestSync(ctx context.Context, username string) (*jobs.SyncJob, error) {
	if s.publisher == nil {
		return nil, fmt.Errorf("no sync publisher configured")
	}
	job := jobs.NewSyncJob(username, s.pageCount, s.maxRetries)
	if err := s.publisher.PublishSync(ctx, job); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Sync job published",
		log.FieldComponent, log.ComponentJobs,
		log.FieldJobID, job.JobID,
		log.FieldUsername, username)
	return job, nil
}

// SyncNow runs a sync in the caller's goroutine
func (s *TransactionService) SyncNow(ctx context.Context, username string) (SyncResult, error) {
	return s.engine.Sync(ctx, username, s.pageCount)
}

func (s *TransactionService) Get(ctx context.Context, username, id string) (core.Transaction, error) {
	return s.store.FindByID(ctx, username, id)
}

// Update replaces a stored transaction with a full client document. The
// document's identity must match username and id.
func (s *TransactionService) Update(ctx context.Context, username, id string, doc []byte) (core.Transaction, error) {
	t, err := core.DecodeStored(doc)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Username != username || t.ID != id {
		return core.Transaction{}, ErrIdentityMismatch
	}
	if err := t.EcoData.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.Replace(ctx, username, id, t); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated",
		log.FieldComponent, log.ComponentStorage,
		log.FieldOperation, log.OpUpdate,
		log.FieldUsername, username,
		log.FieldTransactionID, id)
	return t, nil
}
