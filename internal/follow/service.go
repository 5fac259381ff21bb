// Package follow maintains per-user follow sets through declarative
// add/remove reconciliation.
package follow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flashpaperhq/flashpaper/internal/store"
	"github.com/flashpaperhq/flashpaper/internal/validate"
)

var (
	ErrNotFound     = errors.New("no such user found")
	ErrForbidden    = errors.New("not the record owner")
	ErrEmptyRequest = errors.New("empty follow request")
	ErrBadHandle    = errors.New("invalid handle")
)

// Store is the persistence surface the follow service needs.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	ListFollows(ctx context.Context, userID uuid.UUID) ([]string, error)
	ApplyFollowChanges(ctx context.Context, userID uuid.UUID, add, remove []string, now time.Time) (time.Time, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(log *slog.Logger, st Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  st,
		logger: log.With(slog.String("service", "follow")),
		now:    time.Now,
	}
}

// List returns the follow set of one user in insertion order, with its
// last-modified instant.
func (s *Service) List(ctx context.Context, username, principal string) ([]string, time.Time, error) {
	user, err := s.resolveOwner(ctx, username, principal)
	if err != nil {
		return nil, time.Time{}, err
	}
	handles, err := s.store.ListFollows(ctx, user.ID)
	if err != nil {
		return nil, time.Time{}, err
	}
	return handles, user.FollowsUpdated, nil
}

// Reconcile applies an add/remove delta to the owner's follow set. Every
// handle in both lists is validated before any change is made; one bad
// handle rejects the whole request. Removals apply before additions, so a
// handle named in both lists ends up followed. Adding a handle already
// present and removing one already absent are no-ops.
func (s *Service) Reconcile(ctx context.Context, username, principal string, add, remove []string) error {
	user, err := s.resolveOwner(ctx, username, principal)
	if err != nil {
		return err
	}
	if len(add) == 0 && len(remove) == 0 {
		return ErrEmptyRequest
	}
	for _, handle := range append(append([]string{}, add...), remove...) {
		if !validate.FollowHandle(handle) {
			return fmt.Errorf("%w: %q", ErrBadHandle, handle)
		}
	}

	ts, err := s.store.ApplyFollowChanges(ctx, user.ID, add, remove, s.now())
	if err != nil {
		return err
	}
	s.logger.Info("follow set reconciled",
		slog.String("username", user.Username),
		slog.Int("added", len(add)),
		slog.Int("removed", len(remove)),
		slog.Time("follows_updated", ts))
	return nil
}

func (s *Service) resolveOwner(ctx context.Context, username, principal string) (store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, fmt.Errorf("%w: %q", ErrNotFound, username)
		}
		return store.User{}, err
	}
	if user.Username != principal {
		return store.User{}, ErrForbidden
	}
	return user, nil
}
