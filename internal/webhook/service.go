// Package webhook manages per-user notification targets and delivers
// change notifications to them.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/flashpaperhq/flashpaper/internal/config"
	"github.com/flashpaperhq/flashpaper/internal/db"
	"github.com/flashpaperhq/flashpaper/internal/store"
	"github.com/flashpaperhq/flashpaper/internal/validate"
)

var (
	ErrDisabled     = errors.New("webhooks are disabled on this server")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("not the record owner")
	ErrValidation   = errors.New("invalid webhook")
	ErrLimitReached = errors.New("webhook limit reached")
)

// Store is the persistence surface the registry needs.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	ListWebhooks(ctx context.Context, userID uuid.UUID) ([]store.Webhook, error)
	CountWebhooks(ctx context.Context, userID uuid.UUID) (int64, error)
	GetWebhookByURL(ctx context.Context, userID uuid.UUID, url string) (store.Webhook, error)
	CreateWebhook(ctx context.Context, userID uuid.UUID, url, method string) (store.Webhook, error)
	DeleteWebhook(ctx context.Context, userID uuid.UUID, id int64) error
}

// Service is the webhook registry.
type Service struct {
	store  Store
	cfg    config.WebhooksConfig
	logger *slog.Logger
}

func NewService(log *slog.Logger, st Store, cfg config.WebhooksConfig) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  st,
		cfg:    cfg,
		logger: log.With(slog.String("service", "webhook")),
	}
}

// Enabled reports whether the registry accepts registrations.
func (s *Service) Enabled() bool { return s.cfg.Enabled }

// List returns the owner's registered webhooks in insertion order.
func (s *Service) List(ctx context.Context, username, principal string) ([]store.Webhook, error) {
	user, err := s.resolveOwner(ctx, username, principal)
	if err != nil {
		return nil, err
	}
	return s.store.ListWebhooks(ctx, user.ID)
}

// Add registers a new target. The URL is normalized before storage and
// deduplication: registering an already-present target returns the existing
// entry without consuming quota. Method must be GET or POST.
func (s *Service) Add(ctx context.Context, username, principal, rawURL, method string) (store.Webhook, error) {
	if !s.cfg.Enabled {
		return store.Webhook{}, ErrDisabled
	}
	user, err := s.resolveOwner(ctx, username, principal)
	if err != nil {
		return store.Webhook{}, err
	}

	url, ok := validate.WebhookURL(rawURL)
	if !ok {
		return store.Webhook{}, fmt.Errorf("%w: bad url", ErrValidation)
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method != "GET" && method != "POST" {
		return store.Webhook{}, fmt.Errorf("%w: method must be GET or POST", ErrValidation)
	}

	existing, err := s.store.GetWebhookByURL(ctx, user.ID, url)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Webhook{}, err
	}

	count, err := s.store.CountWebhooks(ctx, user.ID)
	if err != nil {
		return store.Webhook{}, err
	}
	if count >= int64(s.cfg.MaxPerUser) {
		return store.Webhook{}, fmt.Errorf("%w: max %d", ErrLimitReached, s.cfg.MaxPerUser)
	}

	hook, err := s.store.CreateWebhook(ctx, user.ID, url, method)
	if db.IsUniqueViolation(err) {
		// Lost a race with a concurrent registration of the same URL.
		return s.store.GetWebhookByURL(ctx, user.ID, url)
	}
	if err != nil {
		return store.Webhook{}, err
	}
	s.logger.Info("webhook registered",
		slog.String("username", user.Username),
		slog.Int64("webhook_id", hook.ID),
		slog.String("url", url))
	return hook, nil
}

// Delete removes one entry by identifier. Deleting an unknown or foreign
// identifier is an error, not a silent success.
func (s *Service) Delete(ctx context.Context, username, principal string, id int64) error {
	user, err := s.resolveOwner(ctx, username, principal)
	if err != nil {
		return err
	}
	if err := s.store.DeleteWebhook(ctx, user.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: webhook %d", ErrNotFound, id)
		}
		return err
	}
	s.logger.Info("webhook removed",
		slog.String("username", user.Username),
		slog.Int64("webhook_id", id))
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
