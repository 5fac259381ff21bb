package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// batchConcurrency caps how many member lookups run at once.
const batchConcurrency = 8

// BatchEntry is one member of a batched status response.
type BatchEntry struct {
	Username string   `json:"username"`
	Code     int      `json:"code"`
	Data     *Payload `json:"data,omitempty"`
	Message  string   `json:"msg,omitempty"`
}

// BatchGet resolves a set of handles through the single-read path and folds
// the outcomes into one ordered response. Duplicates are collapsed to their
// first occurrence; the shared conditional instant applies to every member.
// A missing handle becomes a 404 entry, it never fails the batch. The
// second return value is the most recent last-modified observed across
// found and not-modified members, usable as an aggregate freshness hint.
func (s *Service) BatchGet(ctx context.Context, usernames []string, ifModifiedSince *time.Time) ([]BatchEntry, time.Time, error) {
	seen := make(map[string]struct{}, len(usernames))
	deduped := make([]string, 0, len(usernames))
	for _, name := range usernames {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		deduped = append(deduped, name)
	}

	entries := make([]BatchEntry, len(deduped))
	modified := make([]time.Time, len(deduped))

	var g errgroup.Group
	g.SetLimit(batchConcurrency)
	for i, name := range deduped {
		g.Go(func() error {
			snapshot, err := s.Get(ctx, name, ifModifiedSince)
			switch {
			case err == nil && snapshot.Freshness == NotModified:
				entries[i] = BatchEntry{Username: name, Code: http.StatusNotModified}
				modified[i] = snapshot.LastModified
			case err == nil:
				payload := snapshot.Payload
				entries[i] = BatchEntry{Username: name, Code: http.StatusOK, Data: &payload}
				modified[i] = snapshot.LastModified
			case errors.Is(err, ErrNotFound):
				entries[i] = BatchEntry{Username: name, Code: http.StatusNotFound, Message: "no such user found"}
			default:
				s.logger.Error("batch member lookup failed",
					"username", name, "error", err)
				entries[i] = BatchEntry{Username: name, Code: http.StatusInternalServerError, Message: "lookup failed"}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, time.Time{}, err
	}

	var latest time.Time
	for _, ts := range modified {
		if ts.After(latest) {
			latest = ts
		}
	}
	return entries, latest, nil
}
