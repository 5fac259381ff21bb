// Package server provides the HTTP server and Echo setup for the presence API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/flashpaperhq/flashpaper/internal/auth"
	"github.com/flashpaperhq/flashpaper/internal/config"
)

// Server is the HTTP server (Echo) with auth middleware and registered handlers.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
}

// Handler registers routes on the Echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

// NewServer builds the Echo server with recovery, request logging, auth, and
// the given handlers. Reads of public presence data skip authentication;
// everything else requires a Bearer JWT or Basic credentials.
func NewServer(log *slog.Logger, cfg config.ServerConfig, jwtSecret string, verify auth.BasicVerifier,
	handlers ...Handler,
) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	e := echo.New()
	e.HideBanner = true
	if cfg.BehindProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(auth.Middleware(jwtSecret, verify, isPublic))

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	// Anything else under the protocol prefix is a known namespace with an
	// unknown route; answer 405 rather than 404.
	e.Any("/.well-known/fmrl/*", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "method not allowed")
	})

	return &Server{
		echo:   e,
		addr:   addr,
		logger: log.With(slog.String("component", "server")),
	}
}

// isPublic reports whether a request may pass unauthenticated: liveness,
// token issuance, and read-only presence endpoints.
func isPublic(c echo.Context) bool {
	path := c.Request().URL.Path
	method := c.Request().Method

	if path == "/ping" || path == "/health" {
		return true
	}
	if path == "/auth/token" && method == http.MethodPost {
		return true
	}
	if method != http.MethodGet && method != http.MethodHead {
		return false
	}
	if path == "/.well-known/fmrl/users" {
		return true
	}
	if strings.HasPrefix(path, "/.well-known/fmrl/avatars/") {
		return true
	}
	if rest, ok := strings.CutPrefix(path, "/.well-known/fmrl/user/"); ok {
		// Only the bare status record is public; follows and webhooks
		// under the same prefix are owner-only.
		return rest != "" && !strings.Contains(rest, "/")
	}
	return false
}

// Start starts the HTTP server (blocks until shutdown).
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Stop gracefully shuts down the server using the given context.
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
