// Package memory is an in-process storage backend. Records are kept as
// encoded documents and decoded on every read, like the persistent backends.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"ecobud/internal/core"
	"ecobud/internal/storage"
)

type Store struct {
	mu    sync.RWMutex
	docs  map[core.Key][]byte
	users map[string]core.User
}

func New() *Store {
	return &Store{
		docs:  make(map[core.Key][]byte),
		users: make(map[string]core.User),
	}
}

// PutDocument stores a raw document under key. Used to seed fixtures,
// including malformed ones.
func (s *Store) PutDocument(key core.Key, doc []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = slices.Clone(doc)
}

// Document returns the raw document stored under key
func (s *Store) Document(key core.Key) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[key]
	return slices.Clone(doc), ok
}

// Len returns the number of stored transactions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Store) FindByID(_ context.Context, username, id string) (core.Transaction, error) {
	s.mu.RLock()
	doc, ok := s.docs[core.Key{Username: username, ID: id}]
	s.mu.RUnlock()
	if !ok {
		return core.Transaction{}, &core.NotFoundError{Username: username, ID: id}
	}
	return core.DecodeStored(doc)
}

func (s *Store) FindMany(_ context.Context, username string, opts storage.ListOptions) ([]core.Transaction, error) {
	txs, err := s.userTransactions(username)
	if err != nil {
		return nil, err
	}
	return storage.ApplyListOptions(txs, opts), nil
}

func (s *Store) FindEffective(_ context.Context, username string, start, end core.Date) ([]core.Transaction, error) {
	txs, err := s.userTransactions(username)
	if err != nil {
		return nil, err
	}
	txs = slices.DeleteFunc(txs, func(t core.Transaction) bool {
		return !storage.IsEffective(t, start, end)
	})
	return storage.ApplyListOptions(txs, storage.ListOptions{SortByDateDesc: true, Limit: len(txs) + 1}), nil
}

func (s *Store) userTransactions(username string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []core.Transaction
	for key, doc := range s.docs {
		if key.Username != username {
			continue
		}
		t, err := core.DecodeStored(doc)
		if err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", key.ID, err)
		}
		txs = append(txs, t)
	}
	return txs, nil
}

func (s *Store) Insert(_ context.Context, t core.Transaction) error {
	doc, err := t.Encode()
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[t.Key()]; exists {
		return storage.ErrAlreadyExists
	}
	s.docs[t.Key()] = doc
	return nil
}

func (s *Store) UpsertMerged(_ context.Context, username, id string, tink core.TinkData, desc core.Description) error {
	key := core.Key{Username: username, ID: id}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[key]
	if !ok {
		return &core.NotFoundError{Username: username, ID: id}
	}
	current, err := core.DecodeStored(doc)
	if err != nil {
		return err
	}
	current.TinkData = tink
	current.Description = desc
	updated, err := current.Encode()
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	s.docs[key] = updated
	return nil
}

func (s *Store) Replace(_ context.Context, username, id string, t core.Transaction) error {
	doc, err := t.Encode()
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	key := core.Key{Username: username, ID: id}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[key]; !ok {
		return &core.NotFoundError{Username: username, ID: id}
	}
	s.docs[key] = doc
	return nil
}

func (s *Store) GetUser(_ context.Context, username string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	if !ok {
		return core.User{}, storage.ErrUserNotFound
	}
	u.Credentials = slices.Clone(u.Credentials)
	return u, nil
}

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Username]; ok {
		return storage.ErrUserAlreadyExists
	}
	if u.Credentials == nil {
		u.Credentials = []string{}
	}
	s.users[u.Username] = u
	return nil
}

func (s *Store) AddCredential(_ context.Context, username, credentialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.Credentials = append(slices.Clone(u.Credentials), credentialID)
	s.users[username] = u
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

var _ storage.Store = (*Store)(nil)
