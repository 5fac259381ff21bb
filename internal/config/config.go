// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultJWTExpiresIn   = "24h"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "flashpaper"
	DefaultPGSSLMode      = "disable"
	DefaultAvatarsDir     = "data/avatars"
	DefaultUploadMaxBytes = 4 * 1024 * 1024
	DefaultWebhooksMax    = 3
	DefaultWebhookTimeout = 10
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Avatars  AvatarsConfig  `toml:"avatars"`
	Webhooks WebhooksConfig `toml:"webhooks"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address and proxy trust flag.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	BehindProxy bool   `toml:"behind_proxy"`
}

// AuthConfig holds JWT secret and token expiry (e.g. 24h).
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// AvatarsConfig holds the avatar storage directory and upload size cap.
type AvatarsConfig struct {
	Dir            string `toml:"dir"`
	UploadMaxBytes int64  `toml:"upload_max_bytes"`
}

// WebhooksConfig holds the webhook feature switch, per-user entry cap,
// and outbound delivery timeout.
type WebhooksConfig struct {
	Enabled        bool `toml:"enabled"`
	MaxPerUser     int  `toml:"max_per_user"`
	TimeoutSeconds int  `toml:"timeout_seconds"`
}

// Load reads and parses the TOML config file at path, applies default
// values for missing fields, and then applies environment overrides
// (FLASHPAPER_WEBHOOKS_ENABLED, FLASHPAPER_WEBHOOKS_MAX,
// FLASHPAPER_USING_PROXY, HTTP_ADDR).
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Avatars: AvatarsConfig{
			Dir:            DefaultAvatarsDir,
			UploadMaxBytes: DefaultUploadMaxBytes,
		},
		Webhooks: WebhooksConfig{
			Enabled:        false,
			MaxPerUser:     DefaultWebhooksMax,
			TimeoutSeconds: DefaultWebhookTimeout,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if value := os.Getenv("HTTP_ADDR"); value != "" {
		cfg.Server.Addr = value
	}
	if value, ok := boolEnv("FLASHPAPER_USING_PROXY"); ok {
		cfg.Server.BehindProxy = value
	}
	if value, ok := boolEnv("FLASHPAPER_WEBHOOKS_ENABLED"); ok {
		cfg.Webhooks.Enabled = value
	}
	if value := os.Getenv("FLASHPAPER_WEBHOOKS_MAX"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			cfg.Webhooks.MaxPerUser = parsed
		}
	}
}

func boolEnv(key string) (bool, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return false, false
	}
	return parsed, true
}
