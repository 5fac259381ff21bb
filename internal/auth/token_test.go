package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	token, expiresAt, err := GenerateToken("alice", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expiresAt = %v, want future", expiresAt)
	}

	username, err := ParseToken(token, "secret")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if username != "alice" {
		t.Errorf("subject = %q, want alice", username)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, _, err := GenerateToken("alice", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(token, "other"); err == nil {
		t.Error("token verified with the wrong secret")
	}
}

func TestParseTokenExpired(t *testing.T) {
	token, _, err := GenerateToken("alice", "secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseToken(token, "secret"); err == nil {
		t.Error("expired token accepted")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	if _, err := ParseToken("not.a.jwt", "secret"); err == nil {
		t.Error("garbage token accepted")
	}
}
