package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ListFollows returns the followed handles of one user in insertion order.
func (s *Store) ListFollows(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT handle FROM user_follows WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	handles := make([]string, 0)
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, err
		}
		handles = append(handles, handle)
	}
	return handles, rows.Err()
}

// ApplyFollowChanges removes then adds handles in one transaction under the
// owner's row lock and advances follows_updated. Duplicate adds and absent
// removes are no-ops via the (user_id, handle) unique constraint. Returns
// the committed timestamp.
func (s *Store) ApplyFollowChanges(ctx context.Context, userID uuid.UUID, add, remove []string, now time.Time) (time.Time, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer tx.Rollback(ctx)

	var prev time.Time
	err = tx.QueryRow(ctx,
		`SELECT follows_updated FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}

	for _, handle := range remove {
		if _, err := tx.Exec(ctx,
			`DELETE FROM user_follows WHERE user_id = $1 AND handle = $2`,
			userID, handle); err != nil {
			return time.Time{}, err
		}
	}
	for _, handle := range add {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_follows (user_id, handle) VALUES ($1, $2)
			 ON CONFLICT (user_id, handle) DO NOTHING`,
			userID, handle); err != nil {
			return time.Time{}, err
		}
	}

	ts := nextTimestamp(prev, now)
	if _, err := tx.Exec(ctx,
		`UPDATE users SET follows_updated = $2 WHERE id = $1`, userID, ts); err != nil {
		return time.Time{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, err
	}
	return ts, nil
}
