package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Errorf("Addr = %q, want %q", cfg.Server.Addr, DefaultHTTPAddr)
	}
	if cfg.Webhooks.Enabled {
		t.Error("webhooks must default to disabled")
	}
	if cfg.Webhooks.MaxPerUser != DefaultWebhooksMax {
		t.Errorf("MaxPerUser = %d, want %d", cfg.Webhooks.MaxPerUser, DefaultWebhooksMax)
	}
	if cfg.Avatars.UploadMaxBytes != DefaultUploadMaxBytes {
		t.Errorf("UploadMaxBytes = %d, want %d", cfg.Avatars.UploadMaxBytes, DefaultUploadMaxBytes)
	}
	if cfg.Server.BehindProxy {
		t.Error("BehindProxy must default to false")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = ":9090"
behind_proxy = true

[auth]
jwt_secret = "sekrit"

[webhooks]
enabled = true
max_per_user = 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if !cfg.Server.BehindProxy {
		t.Error("BehindProxy not read")
	}
	if cfg.Auth.JWTSecret != "sekrit" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if !cfg.Webhooks.Enabled || cfg.Webhooks.MaxPerUser != 5 {
		t.Errorf("Webhooks = %+v", cfg.Webhooks)
	}
	// Untouched sections keep defaults.
	if cfg.Postgres.Host != DefaultPGHost {
		t.Errorf("Postgres.Host = %q", cfg.Postgres.Host)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("FLASHPAPER_USING_PROXY", "true")
	t.Setenv("FLASHPAPER_WEBHOOKS_ENABLED", "true")
	t.Setenv("FLASHPAPER_WEBHOOKS_MAX", "10")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if !cfg.Server.BehindProxy {
		t.Error("FLASHPAPER_USING_PROXY not applied")
	}
	if !cfg.Webhooks.Enabled {
		t.Error("FLASHPAPER_WEBHOOKS_ENABLED not applied")
	}
	if cfg.Webhooks.MaxPerUser != 10 {
		t.Errorf("MaxPerUser = %d, want 10", cfg.Webhooks.MaxPerUser)
	}
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("FLASHPAPER_WEBHOOKS_ENABLED", "maybe")
	t.Setenv("FLASHPAPER_WEBHOOKS_MAX", "-2")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Webhooks.Enabled {
		t.Error("unparseable bool must not flip the switch")
	}
	if cfg.Webhooks.MaxPerUser != DefaultWebhooksMax {
		t.Errorf("MaxPerUser = %d, want default", cfg.Webhooks.MaxPerUser)
	}
}
