package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"ecobud/internal/core"
	"ecobud/internal/log"
	"ecobud/internal/storage"
)

// TransactionFetcher returns the aggregator's raw transaction payloads for
// a user. Pagination is the fetcher's business.
type TransactionFetcher interface {
	FetchTransactions(ctx context.Context, username string, pageCount int) ([]json.RawMessage, error)
}

// SyncResult summarises one reconciliation. Count is the number of
// payloads written, either as new records or as merges.
type SyncResult struct {
	Username string      `json:"username"`
	Count    int         `json:"count"`
	Inserted int         `json:"inserted"`
	Merged   int         `json:"merged"`
	Errors   []ItemError `json:"-"`
}

// ErrorMessages flattens the per-item errors for reporting
func (r SyncResult) ErrorMessages() []string {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return msgs
}

// SyncEngine pulls transactions from the aggregator and reconciles them
// with the store. Existing records keep their ecoData and ignore flag.
type SyncEngine struct {
	fetcher TransactionFetcher
	store   storage.TransactionStore
	group   singleflight.Group
}

func NewSyncEngine(fetcher TransactionFetcher, store storage.TransactionStore) *SyncEngine {
	return &SyncEngine{fetcher: fetcher, store: store}
}

// Sync fetches up to pageCount pages for username and writes them.
// Concurrent calls with the same arguments share one run.
func (e *SyncEngine) Sync(ctx context.Context, username string, pageCount int) (SyncResult, error) {
	if pageCount < 1 {
		pageCount = 1
	}

	// The shared run outlives any single caller; a caller whose ctx ends
	// stops waiting without cancelling it for the others.
	key := fmt.Sprintf("%s/%d", username, pageCount)
	runCtx := context.WithoutCancel(ctx)
	ch := e.group.DoChan(key, func() (any, error) {
		return e.sync(runCtx, username, pageCount)
	})

	select {
	case <-ctx.Done():
		return SyncResult{Username: username}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			slog.DebugContext(ctx, "Joined in-flight sync",
				log.FieldComponent, log.ComponentSync,
				log.FieldUsername, username)
		}
		if res.Err != nil {
			return SyncResult{Username: username}, res.Err
		}
		return res.Val.(SyncResult), nil
	}
}

func (e *SyncEngine) sync(ctx context.Context, username string, pageCount int) (SyncResult, error) {
	result := SyncResult{Username: username}

	payloads, err := e.fetcher.FetchTransactions(ctx, username, pageCount)
	if err != nil {
		return result, &AggregatorUnavailableError{Username: username, Err: err}
	}

	for i, payload := range payloads {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fresh, err := core.FromSource(username, payload)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{Index: i, Err: err})
			continue
		}

		merged, err := e.reconcile(ctx, fresh)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{Index: i, TransactionID: fresh.ID, Err: err})
			continue
		}

		result.Count++
		if merged {
			result.Merged++
		} else {
			result.Inserted++
		}
	}

	fields := log.NewFields().
		WithComponent(log.ComponentSync).
		WithOperation(log.OpSync).
		WithUser(username).
		WithSyncResult(result.Count, result.Inserted, result.Merged, len(result.Errors))
	slog.InfoContext(ctx, "Sync finished", fields.ToSlice()...)
	for _, itemErr := range result.Errors {
		slog.WarnContext(ctx, "Sync item skipped",
			log.FieldComponent, log.ComponentSync,
			log.FieldUsername, username,
			log.FieldTransactionID, itemErr.TransactionID,
			log.FieldError, itemErr.Err)
	}

	return result, nil
}

// reconcile writes one fresh record and reports whether it was merged
// into an existing one.
func (e *SyncEngine) reconcile(ctx context.Context, fresh core.Transaction) (bool, error) {
	_, err := e.store.FindByID(ctx, fresh.Username, fresh.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		err = e.store.Insert(ctx, fresh)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return false, fmt.Errorf("insert: %w", err)
		}
		// inserted concurrently since the lookup
	case err != nil:
		return false, fmt.Errorf("lookup: %w", err)
	}

	if err := e.store.UpsertMerged(ctx, fresh.Username, fresh.ID, fresh.TinkData, fresh.Description); err != nil {
		return false, fmt.Errorf("merge: %w", err)
	}
	return true, nil
}
