package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// Config holds all configurable relay parameters.
type Config struct {
	ReconnectGraceSeconds      int `json:"reconnect_grace_seconds"`
	SessionCleanupGraceSeconds int `json:"session_cleanup_grace_seconds"`
	MaxNameLength              int `json:"max_name_length"`
	WSPort                     int `json:"ws_port"`

	// CORSAllowOrigins is the transport-layer allow-list; not consulted by
	// the core relay, only by the HTTP layer in package server (CORS headers
	// and the WebSocket origin check).
	CORSAllowOrigins []string `json:"cors_allow_origins"`

	// DatabaseURL, when non-empty, enables the optional finished-session
	// archival sink (package archive). Empty means archival is a no-op.
	DatabaseURL string `json:"-"`
}

// Defaults returns a Config with the values fixed by the spec.
func Defaults() *Config {
	return &Config{
		ReconnectGraceSeconds:      10,
		SessionCleanupGraceSeconds: 20,
		MaxNameLength:              24,
		WSPort:                     8080,
		CORSAllowOrigins:           []string{"http://localhost:3000", "http://frontend:3000"},
	}
}

// Load reads configuration from an optional config.json file, then applies
// environment variable overrides. Fields not set in either source retain
// their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideInt(&cfg.ReconnectGraceSeconds, "RECONNECT_GRACE_SECONDS")
	overrideInt(&cfg.SessionCleanupGraceSeconds, "SESSION_CLEANUP_GRACE_SECONDS")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.WSPort, "WS_PORT")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}
