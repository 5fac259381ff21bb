package status_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/flashpaperhq/flashpaper/internal/status"
	"github.com/flashpaperhq/flashpaper/internal/store"
)

func TestBatchGetMixedOutcomes(t *testing.T) {
	fs := newFakeStore()
	aliceTS := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	bobTS := time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC)
	alice := fs.addUser("alice", aliceTS)
	fs.addUser("bob", bobTS)
	fs.records[alice.ID] = store.StatusRecord{Status: strptr("here")}

	svc := status.NewService(nil, fs, nil)

	// alice's copy is stale, bob's is current, carol does not exist.
	ims := aliceTS.Add(-time.Minute)
	entries, latest, err := svc.BatchGet(context.Background(), []string{"alice", "carol", "bob"}, &ims)
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	if entries[0].Username != "alice" || entries[0].Code != http.StatusOK {
		t.Errorf("entry 0 = %+v, want alice 200", entries[0])
	}
	if entries[0].Data == nil || *entries[0].Data.Status != "here" {
		t.Errorf("entry 0 data = %+v, want status here", entries[0].Data)
	}
	if entries[1].Username != "carol" || entries[1].Code != http.StatusNotFound {
		t.Errorf("entry 1 = %+v, want carol 404", entries[1])
	}
	if entries[1].Message != "no such user found" {
		t.Errorf("entry 1 msg = %q", entries[1].Message)
	}
	if entries[1].Data != nil {
		t.Errorf("404 entry must carry no data, got %+v", entries[1].Data)
	}
	if entries[2].Username != "bob" {
		t.Errorf("entry 2 = %+v, want bob", entries[2])
	}

	if !latest.Equal(bobTS) {
		t.Errorf("latest = %v, want %v", latest, bobTS)
	}
}

func TestBatchGetNotModified(t *testing.T) {
	fs := newFakeStore()
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	fs.addUser("alice", ts)

	svc := status.NewService(nil, fs, nil)

	entries, _, err := svc.BatchGet(context.Background(), []string{"alice"}, &ts)
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if entries[0].Code != http.StatusNotModified {
		t.Errorf("code = %d, want 304", entries[0].Code)
	}
	if entries[0].Data != nil {
		t.Errorf("304 entry must carry no data")
	}
}

func TestBatchGetDeduplicates(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("alice", time.Now().UTC())
	fs.addUser("bob", time.Now().UTC())

	svc := status.NewService(nil, fs, nil)

	entries, _, err := svc.BatchGet(context.Background(),
		[]string{"alice", "bob", "alice", "bob", "alice"}, nil)
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Username != "alice" || entries[1].Username != "bob" {
		t.Errorf("order = [%s %s], want first-seen [alice bob]", entries[0].Username, entries[1].Username)
	}
}

func TestBatchGetEmpty(t *testing.T) {
	svc := status.NewService(nil, newFakeStore(), nil)
	entries, latest, err := svc.BatchGet(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
	if !latest.IsZero() {
		t.Errorf("latest = %v, want zero", latest)
	}
}
