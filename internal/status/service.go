// Package status implements the presence core: the conditional-freshness
// protocol, the validated status mutation engine, and batched reads.
package status

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
	ErrEmptyUpdate  = errors.New("empty update")
	ErrValidation   = errors.New("invalid field")
	ErrFieldTooLong = errors.New("field too long")
)

// Store is the persistence surface the status engine needs.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	GetStatus(ctx context.Context, userID uuid.UUID) (store.StatusRecord, store.AvatarRef, error)
	UpdateStatus(ctx context.Context, userID uuid.UUID, fields store.StatusRecord, now time.Time) (time.Time, error)
}

// ChangeNotifier is told after a status mutation commits. Implementations
// must not block the caller.
type ChangeNotifier interface {
	StatusChanged(user store.User)
}

type Service struct {
	store    Store
	notifier ChangeNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the status service. notifier may be nil.
func NewService(log *slog.Logger, st Store, notifier ChangeNotifier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    st,
		notifier: notifier,
		logger:   log.With(slog.String("service", "status")),
		now:      time.Now,
	}
}

// Get performs a conditional read of one user's status record.
func (s *Service) Get(ctx context.Context, username string, ifModifiedSince *time.Time) (Snapshot, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, username)
		}
		return Snapshot{}, err
	}

	if Evaluate(ifModifiedSince, user.LastUpdated) == NotModified {
		return Snapshot{Freshness: NotModified, LastModified: user.LastUpdated}, nil
	}

	record, avatar, err := s.store.GetStatus(ctx, user.ID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Freshness:    Full,
		Payload:      BuildPayload(record, avatar),
		LastModified: user.LastUpdated,
	}, nil
}

// Update validates and applies a partial status mutation for the
// authenticated principal. Every present field is validated before any
// state is touched; one bad field rejects the whole update. An accepted
// update always advances the record's timestamp, even when the values are
// unchanged.
func (s *Service) Update(ctx context.Context, username, principal string, req UpdateRequest) error {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrNotFound, username)
		}
		return err
	}
	if user.Username != principal {
		return ErrForbidden
	}

	fields, err := validateUpdate(req)
	if err != nil {
		return err
	}

	ts, err := s.store.UpdateStatus(ctx, user.ID, fields, s.now())
	if err != nil {
		return err
	}
	s.logger.Info("status updated",
		slog.String("username", user.Username),
		slog.Time("last_modified", ts))

	if s.notifier != nil {
		s.notifier.StatusChanged(user)
	}
	return nil
}

func validateUpdate(req UpdateRequest) (store.StatusRecord, error) {
	if req.Avatar != nil {
		return store.StatusRecord{}, fmt.Errorf("%w: invalid endpoint for updating avatar", ErrValidation)
	}
	if req.empty() {
		return store.StatusRecord{}, ErrEmptyUpdate
	}

	texts := []struct {
		name  string
		value *string
		max   int
	}{
		{"name", req.Name, validate.MaxNameLen},
		{"status", req.Status, validate.MaxStatusLen},
		{"media", req.Media, validate.MaxMediaLen},
	}
	for _, f := range texts {
		if f.value == nil {
			continue
		}
		if validate.RuneLen(*f.value) > f.max {
			return store.StatusRecord{}, fmt.Errorf("%w: %s", ErrFieldTooLong, f.name)
		}
		if !validate.Text(*f.value) {
			return store.StatusRecord{}, fmt.Errorf("%w: invalid unicode character(s) in %s", ErrValidation, f.name)
		}
	}
	if req.Emoji != nil && !validate.Emoji(*req.Emoji) {
		return store.StatusRecord{}, fmt.Errorf("%w: invalid emoji", ErrValidation)
	}

	fields := store.StatusRecord{
		Name:      req.Name,
		Status:    req.Status,
		Emoji:     req.Emoji,
		Media:     req.Media,
		MediaType: req.MediaType,
	}
	if req.URI != nil {
		normalized, ok := validate.URI(*req.URI)
		if !ok {
			return store.StatusRecord{}, fmt.Errorf("%w: invalid uri", ErrValidation)
		}
		fields.URI = &normalized
	}
	return fields, nil
}
