package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const usernameContextKey = "auth_username"

// BasicVerifier checks a username/password pair and returns the principal
// username on success.
type BasicVerifier func(ctx context.Context, username, password string) (string, error)

// Middleware authenticates requests via Bearer JWT or HTTP Basic and stores
// the principal username on the request context. Requests matching skipper
// pass through unauthenticated.
func Middleware(jwtSecret string, verify BasicVerifier, skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			switch {
			case strings.HasPrefix(header, "Bearer "):
				username, err := ParseToken(strings.TrimPrefix(header, "Bearer "), jwtSecret)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
				}
				c.Set(usernameContextKey, username)
			case strings.HasPrefix(header, "Basic "):
				if verify == nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "basic auth not supported")
				}
				username, password, ok := c.Request().BasicAuth()
				if !ok {
					return echo.NewHTTPError(http.StatusUnauthorized, "malformed basic credentials")
				}
				principal, err := verify(c.Request().Context(), username, password)
				if err != nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
				}
				c.Set(usernameContextKey, principal)
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "authorization required")
			}
			return next(c)
		}
	}
}

// UsernameFromContext returns the authenticated principal username.
func UsernameFromContext(c echo.Context) (string, error) {
	username, _ := c.Get(usernameContextKey).(string)
	if username == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return username, nil
}
