// Package avatar ingests, validates, and serves profile images.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"

	"github.com/flashpaperhq/flashpaper/internal/status"
	"github.com/flashpaperhq/flashpaper/internal/storage"
	"github.com/flashpaperhq/flashpaper/internal/store"
)

var (
	ErrNotFound  = errors.New("no such user found")
	ErrForbidden = errors.New("not the record owner")
	ErrNoAvatar  = errors.New("no avatar set")
	ErrTooLarge  = errors.New("image too large")
	ErrBadImage  = errors.New("invalid image")
)

// LocationPrefix is where served avatars live in URL space.
const LocationPrefix = "/.well-known/fmrl/avatars/"

// sniffLen is how many leading bytes content-type detection looks at.
const sniffLen = 512

// Store is the persistence surface avatar ingestion needs.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	GetStatus(ctx context.Context, userID uuid.UUID) (store.StatusRecord, store.AvatarRef, error)
	SetAvatar(ctx context.Context, userID uuid.UUID, location string, cacheKey int64, now time.Time) (time.Time, error)
}

type Service struct {
	store    Store
	blobs    storage.Provider
	notifier status.ChangeNotifier
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the avatar service. notifier may be nil.
func NewService(log *slog.Logger, st Store, blobs storage.Provider, maxBytes int64, notifier status.ChangeNotifier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    st,
		blobs:    blobs,
		notifier: notifier,
		maxBytes: maxBytes,
		logger:   log.With(slog.String("service", "avatar")),
		now:      time.Now,
	}
}

// Set validates and stores a new avatar for the owner. The image must be a
// square JPEG or PNG no larger than the configured byte cap; detection goes
// by content, not by any client-declared type. Replacing an avatar advances
// the record timestamp and rotates the cache key.
func (s *Service) Set(ctx context.Context, username, principal string, body io.Reader) error {
	user, err := s.resolveOwner(ctx, username, principal)
	if err != nil {
		return err
	}

	// Sniff the container from a fixed prefix before touching the rest of
	// the body, so a non-image upload is rejected without being consumed.
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading upload: %w", err)
	}
	head = head[:n]
	if err := sniffContainer(head); err != nil {
		return err
	}

	// Read one byte past the cap to tell "exactly at the cap" from "over".
	rest, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1-int64(len(head))))
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	data := append(head, rest...)
	if int64(len(data)) > s.maxBytes {
		return fmt.Errorf("%w: max %d bytes", ErrTooLarge, s.maxBytes)
	}
	if err := checkSquare(data); err != nil {
		return err
	}

	if err := s.blobs.Put(ctx, username, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("storing avatar: %w", err)
	}

	ts, err := s.store.SetAvatar(ctx, user.ID, LocationPrefix+username, s.now().Unix(), s.now())
	if err != nil {
		return err
	}
	s.logger.Info("avatar updated",
		slog.String("username", user.Username),
		slog.Int("bytes", len(data)),
		slog.Time("last_modified", ts))

	if s.notifier != nil {
		s.notifier.StatusChanged(user)
	}
	return nil
}

// Open returns the stored avatar of one user with its sniffed content type.
// The caller owns the reader.
func (s *Service) Open(ctx context.Context, username string) (io.ReadCloser, string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: %q", ErrNotFound, username)
		}
		return nil, "", err
	}
	_, ref, err := s.store.GetStatus(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	if !ref.Valid {
		return nil, "", ErrNoAvatar
	}

	rc, err := s.blobs.Open(ctx, username)
	if err != nil {
		return nil, "", ErrNoAvatar
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		rc.Close()
		return nil, "", err
	}
	head = head[:n]
	contentType := http.DetectContentType(head)

	return &prefixedReadCloser{
		Reader: io.MultiReader(bytes.NewReader(head), rc),
		closer: rc,
	}, contentType, nil
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

// sniffContainer verifies the leading bytes look like a JPEG or PNG.
func sniffContainer(head []byte) error {
	switch http.DetectContentType(head) {
	case "image/jpeg", "image/png":
		return nil
	default:
		return fmt.Errorf("%w: only jpeg and png are accepted", ErrBadImage)
	}
}

// checkSquare decodes the image header and requires equal dimensions.
func checkSquare(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if cfg.Width != cfg.Height {
		return fmt.Errorf("%w: image must be square, got %dx%d", ErrBadImage, cfg.Width, cfg.Height)
	}
	return nil
}

type prefixedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (p *prefixedReadCloser) Close() error { return p.closer.Close() }
