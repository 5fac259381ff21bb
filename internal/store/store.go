// Package store is the PostgreSQL persistence layer for accounts, status
// records, follow sets, and webhook entries. All per-identity mutations run
// in a single transaction and serialize on the owner's user row.
package store

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// Store executes queries against a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store over the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// nextTimestamp picks the timestamp committed for a mutation: now truncated
// to whole seconds, but always strictly after prev so every accepted write
// is observable through conditional reads.
func nextTimestamp(prev, now time.Time) time.Time {
	ts := now.UTC().Truncate(time.Second)
	if !ts.After(prev) {
		ts = prev.Add(time.Second)
	}
	return ts
}
