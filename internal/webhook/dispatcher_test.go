package webhook_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/flashpaperhq/flashpaper/internal/config"
	"github.com/flashpaperhq/flashpaper/internal/store"
	"github.com/flashpaperhq/flashpaper/internal/webhook"
)

type fakeDispatchStore struct {
	mu      sync.Mutex
	hooks   []store.Webhook
	record  store.StatusRecord
	results map[int64]int32
	done    chan struct{}
}

func newFakeDispatchStore(hooks []store.Webhook) *fakeDispatchStore {
	return &fakeDispatchStore{
		hooks:   hooks,
		results: make(map[int64]int32),
		done:    make(chan struct{}, len(hooks)),
	}
}

func (f *fakeDispatchStore) ListWebhooks(_ context.Context, _ uuid.UUID) ([]store.Webhook, error) {
	return f.hooks, nil
}

func (f *fakeDispatchStore) GetStatus(_ context.Context, _ uuid.UUID) (store.StatusRecord, store.AvatarRef, error) {
	return f.record, store.AvatarRef{}, nil
}

func (f *fakeDispatchStore) RecordWebhookResult(_ context.Context, id int64, status int32, _ time.Time) error {
	f.mu.Lock()
	f.results[id] = status
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeDispatchStore) waitResults(t *testing.T, n int) map[int64]int32 {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for deliveries")
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make(map[int64]int32, len(f.results))
	for k, v := range f.results {
		results[k] = v
	}
	return results
}

func TestDispatcherDelivers(t *testing.T) {
	var (
		mu       sync.Mutex
		gotGet   bool
		postBody map[string]any
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			gotGet = true
		case http.MethodPost:
			_ = json.NewDecoder(r.Body).Decode(&postBody)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	s := "around"
	fs := newFakeDispatchStore([]store.Webhook{
		{ID: 1, URL: ts.URL + "/get", Method: http.MethodGet},
		{ID: 2, URL: ts.URL + "/post", Method: http.MethodPost},
	})
	fs.record = store.StatusRecord{Status: &s}

	d := webhook.NewDispatcher(nil, fs, config.WebhooksConfig{Enabled: true, TimeoutSeconds: 5})
	d.StatusChanged(store.User{ID: uuid.New(), Username: "alice"})

	results := fs.waitResults(t, 2)
	if results[1] != http.StatusOK || results[2] != http.StatusOK {
		t.Errorf("results = %v, want 200 for both", results)
	}

	mu.Lock()
	defer mu.Unlock()
	if !gotGet {
		t.Error("GET hook was not called")
	}
	if postBody["status"] != "around" {
		t.Errorf("POST body = %v", postBody)
	}
}

func TestDispatcherRecordsTransportFailure(t *testing.T) {
	fs := newFakeDispatchStore([]store.Webhook{
		// Closed port; the request fails at the transport level.
		{ID: 7, URL: "http://127.0.0.1:1/hook", Method: http.MethodGet},
	})

	d := webhook.NewDispatcher(nil, fs, config.WebhooksConfig{Enabled: true, TimeoutSeconds: 2})
	d.StatusChanged(store.User{ID: uuid.New(), Username: "alice"})

	results := fs.waitResults(t, 1)
	if results[7] != 0 {
		t.Errorf("result = %d, want 0 for transport failure", results[7])
	}
}

func TestDispatcherDisabled(t *testing.T) {
	fs := newFakeDispatchStore([]store.Webhook{
		{ID: 1, URL: "http://127.0.0.1:1/hook", Method: http.MethodGet},
	})
	d := webhook.NewDispatcher(nil, fs, config.WebhooksConfig{Enabled: false, TimeoutSeconds: 2})
	d.StatusChanged(store.User{ID: uuid.New(), Username: "alice"})

	select {
	case <-fs.done:
		t.Error("disabled dispatcher must not deliver")
	case <-time.After(100 * time.Millisecond):
	}
}
