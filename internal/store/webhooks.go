package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/flashpaperhq/flashpaper/internal/db"
)

const webhookColumns = `id, url, method, last_status, last_called, created_at`

func scanWebhook(row pgx.Row) (Webhook, error) {
	var (
		w          Webhook
		lastStatus pgtype.Int4
		lastCalled pgtype.Timestamptz
	)
	err := row.Scan(&w.ID, &w.URL, &w.Method, &lastStatus, &lastCalled, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Webhook{}, ErrNotFound
	}
	if err != nil {
		return Webhook{}, err
	}
	w.LastStatus = db.PtrFromInt4(lastStatus)
	w.LastCalled = db.PtrFromTimestamptz(lastCalled)
	return w, nil
}

// ListWebhooks returns all webhook entries of one user in insertion order.
func (s *Store) ListWebhooks(ctx context.Context, userID uuid.UUID) ([]Webhook, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+webhookColumns+` FROM user_webhooks WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hooks := make([]Webhook, 0)
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// CountWebhooks returns the number of webhook entries owned by one user.
func (s *Store) CountWebhooks(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_webhooks WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

// GetWebhookByURL looks up an entry by its normalized target URL.
func (s *Store) GetWebhookByURL(ctx context.Context, userID uuid.UUID, url string) (Webhook, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+webhookColumns+` FROM user_webhooks WHERE user_id = $1 AND url = $2`,
		userID, url)
	return scanWebhook(row)
}

// CreateWebhook inserts a new entry. The (user_id, url) unique constraint
// backs deduplication; callers should treat a unique violation as an
// existing entry.
func (s *Store) CreateWebhook(ctx context.Context, userID uuid.UUID, url, method string) (Webhook, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO user_webhooks (user_id, url, method) VALUES ($1, $2, $3)
		 RETURNING `+webhookColumns,
		userID, url, method)
	return scanWebhook(row)
}

// DeleteWebhook removes an entry scoped to its owner. Unknown or foreign
// identifiers are ErrNotFound, not silent successes.
func (s *Store) DeleteWebhook(ctx context.Context, userID uuid.UUID, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_webhooks WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: webhook %d", ErrNotFound, id)
	}
	return nil
}

// RecordWebhookResult stores the outcome of the most recent delivery
// attempt (HTTP status code, or 0 for a transport failure).
func (s *Store) RecordWebhookResult(ctx context.Context, id int64, status int32, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_webhooks SET last_status = $2, last_called = $3 WHERE id = $1`,
		id, status, at)
	return err
}
