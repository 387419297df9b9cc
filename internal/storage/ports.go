// Package storage is the keyed persistence layer for transactions and users.
// Every operation is scoped by username and is atomic on its own; nothing
// spans more than one call.
package storage

import (
	"context"
	"errors"
	"slices"
	"strings"

	"ecobud/internal/core"
)

// DefaultLimit caps listing queries
const DefaultLimit = 100

var (
	// ErrNotFound is the same sentinel as core.ErrNotFound
	ErrNotFound = core.ErrNotFound
	// ErrAlreadyExists is returned by Insert when the key is taken
	ErrAlreadyExists = errors.New("transaction already exists")
	// ErrUserNotFound is returned when a username has no account
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned by CreateUser when the username is taken
	ErrUserAlreadyExists = errors.New("user already exists")
)

// ListOptions shapes a FindMany query
type ListOptions struct {
	ExcludeIgnored bool
	SortByDateDesc bool
	Limit          int
}

// DefaultListOptions is the transaction listing query
func DefaultListOptions() ListOptions {
	return ListOptions{ExcludeIgnored: true, SortByDateDesc: true, Limit: DefaultLimit}
}

// EffectiveLimit returns Limit, or DefaultLimit when Limit is not positive
func (o ListOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

type (
	TransactionReader interface {
		FindByID(ctx context.Context, username, id string) (core.Transaction, error)
		FindMany(ctx context.Context, username string, opts ListOptions) ([]core.Transaction, error)
		// FindEffective returns one-off transactions dated inside [start, end]
		// and recurring ones whose interval overlaps it.
		FindEffective(ctx context.Context, username string, start, end core.Date) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		Insert(ctx context.Context, t core.Transaction) error
		// UpsertMerged overwrites only tinkData and description of an existing record.
		UpsertMerged(ctx context.Context, username, id string, tink core.TinkData, desc core.Description) error
		Replace(ctx context.Context, username, id string, t core.Transaction) error
	}

	TransactionStore interface {
		TransactionReader
		TransactionWriter
	}

	UserStore interface {
		GetUser(ctx context.Context, username string) (core.User, error)
		CreateUser(ctx context.Context, u core.User) error
		AddCredential(ctx context.Context, username, credentialID string) error
	}

	// Store is what a backend provides to the rest of the application
	Store interface {
		TransactionStore
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// IsEffective is the candidate predicate FindEffective implements
func IsEffective(t core.Transaction, start, end core.Date) bool {
	if t.EcoData.OneOff {
		return t.Date.Within(start, end)
	}
	return !t.EcoData.StartDate.After(end) && !t.EcoData.EndDate.Before(start)
}

// ApplyListOptions filters, orders and truncates txs in place.
// Date ties are broken by id so results are deterministic.
func ApplyListOptions(txs []core.Transaction, opts ListOptions) []core.Transaction {
	if opts.ExcludeIgnored {
		txs = slices.DeleteFunc(txs, func(t core.Transaction) bool { return t.Ignore })
	}
	if opts.SortByDateDesc {
		slices.SortStableFunc(txs, func(a, b core.Transaction) int {
			if c := b.Date.Compare(a.Date.Time); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})
	}
	if limit := opts.EffectiveLimit(); len(txs) > limit {
		txs = txs[:limit]
	}
	return txs
}
