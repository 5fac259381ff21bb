package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestIsPublic(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   bool
	}{
		{"ping", http.MethodGet, "/ping", true},
		{"health", http.MethodHead, "/health", true},
		{"token issue", http.MethodPost, "/auth/token", true},
		{"token wrong method", http.MethodGet, "/auth/token", false},
		{"single status read", http.MethodGet, "/.well-known/fmrl/user/alice", true},
		{"single status head", http.MethodHead, "/.well-known/fmrl/user/alice", true},
		{"status update", http.MethodPatch, "/.well-known/fmrl/user/alice", false},
		{"batch read", http.MethodGet, "/.well-known/fmrl/users", true},
		{"avatar read", http.MethodGet, "/.well-known/fmrl/avatars/alice", true},
		{"avatar upload", http.MethodPut, "/.well-known/fmrl/user/alice/avatar", false},
		{"follow list", http.MethodGet, "/.well-known/fmrl/user/alice/following", false},
		{"webhook list", http.MethodGet, "/.well-known/fmrl/user/alice/webhooks", false},
		{"bare user prefix", http.MethodGet, "/.well-known/fmrl/user/", false},
		{"unrelated path", http.MethodGet, "/metrics", false},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			if got := isPublic(c); got != tt.want {
				t.Errorf("isPublic(%s %s) = %v, want %v", tt.method, tt.path, got, tt.want)
			}
		})
	}
}
