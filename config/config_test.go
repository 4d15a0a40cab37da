package config

import (
	"os"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.ReconnectGraceSeconds != 10 {
		t.Errorf("expected ReconnectGraceSeconds=10, got %d", cfg.ReconnectGraceSeconds)
	}
	if cfg.SessionCleanupGraceSeconds != 20 {
		t.Errorf("expected SessionCleanupGraceSeconds=20, got %d", cfg.SessionCleanupGraceSeconds)
	}
	if cfg.MaxNameLength != 24 {
		t.Errorf("expected MaxNameLength=24, got %d", cfg.MaxNameLength)
	}
	if cfg.WSPort != 8080 {
		t.Errorf("expected WSPort=8080, got %d", cfg.WSPort)
	}
	if len(cfg.CORSAllowOrigins) != 2 {
		t.Errorf("expected 2 default CORS origins, got %d", len(cfg.CORSAllowOrigins))
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	os.Setenv("RECONNECT_GRACE_SECONDS", "5")
	os.Setenv("SESSION_CLEANUP_GRACE_SECONDS", "30")
	os.Setenv("MAX_NAME_LENGTH", "12")
	os.Setenv("WS_PORT", "9090")
	os.Setenv("DATABASE_URL", "postgres://example")
	defer func() {
		os.Unsetenv("RECONNECT_GRACE_SECONDS")
		os.Unsetenv("SESSION_CLEANUP_GRACE_SECONDS")
		os.Unsetenv("MAX_NAME_LENGTH")
		os.Unsetenv("WS_PORT")
		os.Unsetenv("DATABASE_URL")
	}()

	cfg := Load()

	if cfg.ReconnectGraceSeconds != 5 {
		t.Errorf("expected ReconnectGraceSeconds=5 after env override, got %d", cfg.ReconnectGraceSeconds)
	}
	if cfg.SessionCleanupGraceSeconds != 30 {
		t.Errorf("expected SessionCleanupGraceSeconds=30 after env override, got %d", cfg.SessionCleanupGraceSeconds)
	}
	if cfg.MaxNameLength != 12 {
		t.Errorf("expected MaxNameLength=12 after env override, got %d", cfg.MaxNameLength)
	}
	if cfg.WSPort != 9090 {
		t.Errorf("expected WSPort=9090 after env override, got %d", cfg.WSPort)
	}
	if cfg.DatabaseURL != "postgres://example" {
		t.Errorf("expected DatabaseURL picked up from env, got %q", cfg.DatabaseURL)
	}
}

func TestLoadWithInvalidEnv(t *testing.T) {
	os.Setenv("MAX_NAME_LENGTH", "invalid")
	defer os.Unsetenv("MAX_NAME_LENGTH")

	cfg := Load()

	if cfg.MaxNameLength != 24 {
		t.Errorf("expected MaxNameLength=24 (default) with invalid env, got %d", cfg.MaxNameLength)
	}
}
