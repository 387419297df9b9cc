package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ecobud/internal/cache"
	"ecobud/internal/log"
	"ecobud/internal/storage"
)

// LinkStateTTL bounds how long a bank link may take to come back
const LinkStateTTL = 10 * time.Minute

// BankLinker builds the Tink Link URL for a user
type BankLinker interface {
	BankConnectionURL(ctx context.Context, username, state string) (string, error)
}

// BankService runs the bank connection round trip. The state handed to
// Tink Link is single use and maps back to the user on callback.
type BankService struct {
	users  storage.UserStore
	linker BankLinker
	states *cache.LRUCache[string]
}

func NewBankService(users storage.UserStore, linker BankLinker, states *cache.LRUCache[string]) *BankService {
	if states == nil {
		states = cache.NewLRUCache[string](1000, LinkStateTTL)
	}
	return &BankService{users: users, linker: linker, states: states}
}

// States exposes the state cache for periodic cleanup
func (s *BankService) States() cache.Cleaner {
	return s.states
}

func (s *BankService) LinkURL(ctx context.Context, username string) (string, error) {
	if _, err := s.users.GetUser(ctx, username); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	state := uuid.NewString()
	link, err := s.linker.BankConnectionURL(ctx, username, state)
	if err != nil {
		return "", &AggregatorUnavailableError{Username: username, Err: err}
	}
	s.states.Set(state, username)

	slog.InfoContext(ctx, "Bank link issued",
		log.FieldComponent, log.ComponentTink,
		log.FieldOperation, log.OpLink,
		log.FieldUsername, username)
	return link, nil
}

// Callback records the credential Tink Link reports for state and returns
// the user it belongs to.
func (s *BankService) Callback(ctx context.Context, credentialsID, state string) (string, error) {
	username, ok := s.states.Take(state)
	if !ok {
		return "", ErrMissingState
	}
	if credentialsID == "" {
		return "", fmt.Errorf("credentials id is required")
	}
	if err := s.users.AddCredential(ctx, username, credentialsID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("add credential: %w", err)
	}

	slog.InfoContext(ctx, "Bank credential linked",
		log.FieldComponent, log.ComponentTink,
		log.FieldOperation, log.OpLink,
		log.FieldUsername, username)
	return username, nil
}
