package services

import (
	"errors"
	"fmt"
)

var (
	// ErrAggregatorUnavailable matches every AggregatorUnavailableError
	ErrAggregatorUnavailable = errors.New("aggregator unavailable")
	ErrIdentityMismatch      = errors.New("transaction identity does not match request")
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrUserNotFound          = errors.New("user not found")
	ErrWrongPassword         = errors.New("wrong password")
	ErrMissingState          = errors.New("unknown or expired link state")
)

// AggregatorUnavailableError means the fetch for a whole sync failed.
// Nothing was written for that call.
type AggregatorUnavailableError struct {
	Username string
	Err      error
}

func (e *AggregatorUnavailableError) Error() string {
	return fmt.Sprintf("fetch transactions for %s: %v", e.Username, e.Err)
}

func (e *AggregatorUnavailableError) Unwrap() error { return e.Err }

func (e *AggregatorUnavailableError) Is(target error) bool {
	return target == ErrAggregatorUnavailable
}

// Retryable marks the failure as transient for the job queues
func (e *AggregatorUnavailableError) Retryable() bool { return true }

// ItemError records one payload of a batch that could not be reconciled
type ItemError struct {
	Index         int
	TransactionID string
	Err           error
}

func (e ItemError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("item %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.TransactionID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }
