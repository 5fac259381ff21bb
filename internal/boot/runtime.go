// Package boot provides runtime configuration derived from the static config.
package boot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flashpaperhq/flashpaper/internal/config"
)

// RuntimeConfig holds parsed runtime settings (JWT secret and expiry).
type RuntimeConfig struct {
	JwtSecret    string
	JwtExpiresIn time.Duration
}

// ProvideRuntimeConfig builds RuntimeConfig from the given config.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}

	jwtExpiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("invalid jwt expires in: %w", err)
	}

	return &RuntimeConfig{
		JwtSecret:    cfg.Auth.JWTSecret,
		JwtExpiresIn: jwtExpiresIn,
	}, nil
}
