// Package accounts manages local user accounts and their credentials.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/flashpaperhq/flashpaper/internal/db"
	"github.com/flashpaperhq/flashpaper/internal/storage"
	"github.com/flashpaperhq/flashpaper/internal/store"
	"github.com/flashpaperhq/flashpaper/internal/validate"
)

var (
	ErrNotFound       = errors.New("no such user found")
	ErrExists         = errors.New("username already taken")
	ErrBadUsername    = errors.New("invalid username")
	ErrBadCredentials = errors.New("invalid username or password")
)

// Store is the persistence surface account management needs.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	CreateUser(ctx context.Context, username, passwordHash string) (store.User, error)
	DeleteUser(ctx context.Context, username string) error
	UpdateUserPassword(ctx context.Context, username, passwordHash string) error
}

type Service struct {
	store  Store
	blobs  storage.Provider
	logger *slog.Logger
}

// NewService creates the accounts service. blobs may be nil when no avatar
// storage is configured.
func NewService(log *slog.Logger, st Store, blobs storage.Provider) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  st,
		blobs:  blobs,
		logger: log.With(slog.String("service", "accounts")),
	}
}

// Create registers a new local account with empty status and follow sets.
func (s *Service) Create(ctx context.Context, username, password string) (store.User, error) {
	if !validate.Username(username) {
		return store.User{}, fmt.Errorf("%w: %q", ErrBadUsername, username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, string(hash))
	if db.IsUniqueViolation(err) {
		return store.User{}, fmt.Errorf("%w: %q", ErrExists, username)
	}
	if err != nil {
		return store.User{}, err
	}
	s.logger.Info("account created", slog.String("username", username))
	return user, nil
}

// Delete removes an account and everything hanging off it, including the
// stored avatar blob.
func (s *Service) Delete(ctx context.Context, username string) error {
	if err := s.store.DeleteUser(ctx, username); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, username)
		}
		return err
	}
	if s.blobs != nil {
		if err := s.blobs.Delete(ctx, username); err != nil {
			// The account is gone either way; an orphaned blob is only
			// worth a warning.
			s.logger.Warn("removing avatar blob failed",
				slog.String("username", username),
				slog.Any("error", err))
		}
	}
	s.logger.Info("account removed", slog.String("username", username))
	return nil
}

// SetPassword replaces an account's password.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, username, string(hash)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, username)
		}
		return err
	}
	s.logger.Info("password changed", slog.String("username", username))
	return nil
}

// Verify checks a username/password pair and returns the account on
// success. Unknown usernames and wrong passwords are indistinguishable to
// the caller.
func (s *Service) Verify(ctx context.Context, username, password string) (store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, ErrBadCredentials
		}
		return store.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return store.User{}, ErrBadCredentials
	}
	return user, nil
}
