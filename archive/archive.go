// Package archive is an optional, write-only sink for finished-session
// summaries. It is gated on DATABASE_URL: with no URL configured, every
// method is a no-op, so the relay's live registries remain the only
// source of truth for anything the spec actually depends on. This is
// external analytics, not the persistence the spec's Non-goals exclude.
package archive

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS session_archive (
	session_id   UUID PRIMARY KEY,
	players_json TEXT NOT NULL,
	duration_ms  BIGINT NOT NULL,
	end_reason   TEXT NOT NULL,
	archived_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Sink is the archival destination. A nil pool means archival is disabled.
type Sink struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL and ensures the archive table exists. An
// empty databaseURL returns a disabled Sink whose methods are all no-ops;
// this is the common case in development and in tests.
func New(ctx context.Context, databaseURL string) (*Sink, error) {
	if databaseURL == "" {
		slog.Info("archive: no DATABASE_URL configured, archival disabled")
		return &Sink{}, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("archive: connected, archival enabled")
	return &Sink{pool: pool}, nil
}

// Record writes one summary row for a finished (or abandoned) session.
// endReason is one of "game_over", "both_left", or "reconnect_grace_expired".
// Errors are logged, not returned or retried: a failed archive write must
// never block or roll back session removal.
func (s *Sink) Record(ctx context.Context, sessionID string, players map[string]string, durationMs int64, endReason string) {
	if s == nil || s.pool == nil {
		return
	}
	playersJSON, err := json.Marshal(players)
	if err != nil {
		slog.Error("archive: failed to marshal players", "session_id", sessionID, "error", err)
		return
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO session_archive (session_id, players_json, duration_ms, end_reason) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO NOTHING`,
		sessionID, string(playersJSON), durationMs, endReason)
	if err != nil {
		slog.Error("archive: insert failed", "session_id", sessionID, "error", err)
	}
}

// Close releases the underlying connection pool, if any.
func (s *Sink) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
