package db

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/flashpaperhq/flashpaper/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "app",
		Password: "pw",
		Database: "presence",
		SSLMode:  "require",
	}
	want := "postgres://app:pw@db.internal:5433/presence?sslmode=require"
	if got := DSN(cfg); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestTextPtrRoundTrip(t *testing.T) {
	if got := TextFromPtr(nil); got.Valid {
		t.Error("nil must map to NULL")
	}
	s := ""
	if got := TextFromPtr(&s); !got.Valid || got.String != "" {
		t.Error("empty string is a value, not NULL")
	}
	if got := PtrFromText(pgtype.Text{}); got != nil {
		t.Error("NULL must map to nil")
	}
	if got := PtrFromText(pgtype.Text{String: "x", Valid: true}); got == nil || *got != "x" {
		t.Errorf("PtrFromText = %v", got)
	}
}

func TestInt4PtrRoundTrip(t *testing.T) {
	if got := Int4FromPtr(nil); got.Valid {
		t.Error("nil must map to NULL")
	}
	n := int32(0)
	if got := Int4FromPtr(&n); !got.Valid || got.Int32 != 0 {
		t.Error("zero is a value, not NULL")
	}
	if got := PtrFromInt4(pgtype.Int4{}); got != nil {
		t.Error("NULL must map to nil")
	}
}

func TestPtrFromTimestamptz(t *testing.T) {
	if got := PtrFromTimestamptz(pgtype.Timestamptz{}); got != nil {
		t.Error("NULL must map to nil")
	}
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	got := PtrFromTimestamptz(pgtype.Timestamptz{Time: ts, Valid: true})
	if got == nil || !got.Equal(ts) {
		t.Errorf("PtrFromTimestamptz = %v", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Error("nil is not a violation")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Error("plain error is not a violation")
	}
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("23505 must be detected")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("other SQLSTATE must not match")
	}
}
