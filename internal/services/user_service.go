package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"ecobud/internal/core"
	"ecobud/internal/log"
	"ecobud/internal/storage"
	"ecobud/internal/tink"
)

// AggregatorUsers is the part of the Tink client account management needs
type AggregatorUsers interface {
	CreateUser(ctx context.Context, username string) (string, error)
	GetUser(ctx context.Context, username string) (tink.User, error)
}

type UserService struct {
	users      storage.UserStore
	aggregator AggregatorUsers
	cost       int
}

func NewUserService(users storage.UserStore, aggregator AggregatorUsers) *UserService {
	return &UserService{users: users, aggregator: aggregator, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Create registers a local account backed by a Tink user. An existing
// Tink user with the same external id is reused.
func (s *UserService) Create(ctx context.Context, username, email, password string) (core.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return core.User{}, fmt.Errorf("username and password are required")
	}

	_, err := s.users.GetUser(ctx, username)
	switch {
	case err == nil:
		return core.User{}, ErrUserAlreadyExists
	case !errors.Is(err, storage.ErrUserNotFound):
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	tinkID, err := s.aggregator.CreateUser(ctx, username)
	if errors.Is(err, tink.ErrUserAlreadyExists) {
		var existing tink.User
		existing, err = s.aggregator.GetUser(ctx, username)
		tinkID = existing.ID
	}
	if err != nil {
		return core.User{}, &AggregatorUnavailableError{Username: username, Err: err}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := core.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		TinkUserID:   tinkID,
		Credentials:  []string{},
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			return core.User{}, ErrUserAlreadyExists
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created",
		log.FieldComponent, log.ComponentSecurity,
		log.FieldOperation, log.OpCreate,
		log.FieldUsername, username)
	return u, nil
}

// Login checks a password against the stored hash
func (s *UserService) Login(ctx context.Context, username, password string) (core.User, error) {
	u, err := s.users.GetUser(ctx, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Login rejected",
			log.FieldComponent, log.ComponentSecurity,
			log.FieldOperation, log.OpLogin,
			log.FieldUsername, username)
		return core.User{}, ErrWrongPassword
	}
	return u, nil
}
