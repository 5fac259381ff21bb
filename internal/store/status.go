package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/flashpaperhq/flashpaper/internal/db"
)

// GetStatus reads the status record and avatar reference of one user.
func (s *Store) GetStatus(ctx context.Context, userID uuid.UUID) (StatusRecord, AvatarRef, error) {
	var (
		name, status, emoji, media, uri pgtype.Text
		mediaType                       pgtype.Int4
		location                        pgtype.Text
		cacheKey                        pgtype.Int8
	)
	err := s.pool.QueryRow(ctx,
		`SELECT st.name, st.status, st.emoji, st.media, st.media_type, st.uri,
		        av.location, av.cache_key
		 FROM user_statuses st
		 JOIN user_avatars av ON av.user_id = st.user_id
		 WHERE st.user_id = $1`, userID).
		Scan(&name, &status, &emoji, &media, &mediaType, &uri, &location, &cacheKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusRecord{}, AvatarRef{}, ErrNotFound
	}
	if err != nil {
		return StatusRecord{}, AvatarRef{}, err
	}

	record := StatusRecord{
		Name:      db.PtrFromText(name),
		Status:    db.PtrFromText(status),
		Emoji:     db.PtrFromText(emoji),
		Media:     db.PtrFromText(media),
		MediaType: db.PtrFromInt4(mediaType),
		URI:       db.PtrFromText(uri),
	}
	avatar := AvatarRef{}
	if location.Valid && cacheKey.Valid {
		avatar = AvatarRef{Location: location.String, CacheKey: cacheKey.Int64, Valid: true}
	}
	return record, avatar, nil
}

// UpdateStatus applies the non-nil fields and advances last_updated, all in
// one transaction under the owner's row lock. Returns the committed
// timestamp.
func (s *Store) UpdateStatus(ctx context.Context, userID uuid.UUID, fields StatusRecord, now time.Time) (time.Time, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer tx.Rollback(ctx)

	var prev time.Time
	err = tx.QueryRow(ctx,
		`SELECT last_updated FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	ts := nextTimestamp(prev, now)

	if _, err := tx.Exec(ctx,
		`UPDATE user_statuses SET
		     name = COALESCE($2, name),
		     status = COALESCE($3, status),
		     emoji = COALESCE($4, emoji),
		     media = COALESCE($5, media),
		     media_type = COALESCE($6, media_type),
		     uri = COALESCE($7, uri)
		 WHERE user_id = $1`,
		userID,
		db.TextFromPtr(fields.Name),
		db.TextFromPtr(fields.Status),
		db.TextFromPtr(fields.Emoji),
		db.TextFromPtr(fields.Media),
		db.Int4FromPtr(fields.MediaType),
		db.TextFromPtr(fields.URI)); err != nil {
		return time.Time{}, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET last_updated = $2 WHERE id = $1`, userID, ts); err != nil {
		return time.Time{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

// SetAvatar stores the avatar location and cache key together and advances
// last_updated, mirroring a status mutation.
func (s *Store) SetAvatar(ctx context.Context, userID uuid.UUID, location string, cacheKey int64, now time.Time) (time.Time, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer tx.Rollback(ctx)

	var prev time.Time
	err = tx.QueryRow(ctx,
		`SELECT last_updated FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	ts := nextTimestamp(prev, now)

	if _, err := tx.Exec(ctx,
		`UPDATE user_avatars SET location = $2, cache_key = $3 WHERE user_id = $1`,
		userID, location, cacheKey); err != nil {
		return time.Time{}, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET last_updated = $2 WHERE id = $1`, userID, ts); err != nil {
		return time.Time{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}
