package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lobby-relay-server/archive"
	"lobby-relay-server/config"
	"lobby-relay-server/gracetimer"
)

// Registry owns every live session plus their cleanup timers.
type Registry struct {
	cfg     *config.Config
	archive *archive.Sink

	mu       sync.Mutex
	sessions map[string]*Session

	cleanupTimers *gracetimer.Table
}

// NewRegistry creates an empty session registry. archiveSink may be a
// disabled (no-op) sink; never nil.
func NewRegistry(cfg *config.Config, archiveSink *archive.Sink) *Registry {
	return &Registry{
		cfg:           cfg,
		archive:       archiveSink,
		sessions:      make(map[string]*Session),
		cleanupTimers: gracetimer.NewTable(),
	}
}

// CreateSession mints a fresh session id and registers a new session for
// the given pair of players.
func (r *Registry) CreateSession(playerOneID, playerOneName, playerTwoID, playerTwoName string) *Session {
	id := uuid.NewString()
	sess := newSession(id, playerOneID, playerOneName, playerTwoID, playerTwoName)

	r.mu.Lock()
	r.sessions[id] = sess
	r.mu.Unlock()

	slog.Info("session: created", "session_id", id, "player_one", playerOneID, "player_two", playerTwoID)
	return sess
}

// GetSession looks up a session by id.
func (r *Registry) GetSession(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// RemoveSession tears a session down: cancels any pending cleanup timer,
// drops it from the registry, clears its connections/state, and archives a
// summary row (a no-op if archival is disabled).
func (r *Registry) RemoveSession(id string) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return
	}

	r.cleanupTimers.Cancel(id)
	sess.clear()

	durationMs := time.Since(sess.CreatedAt).Milliseconds()
	endReason := "both_left"
	if sess.Finished() {
		endReason = "game_over"
	}
	r.archive.Record(context.Background(), id, sess.Players, durationMs, endReason)
	slog.Info("session: removed", "session_id", id, "end_reason", endReason)
}

// ForwardState records sender's state and relays it to the opponent as an
// opponent_state frame. A missing session is a silent no-op: the caller's
// socket loop will see its own send/receive fail and unwind independently.
func (r *Registry) ForwardState(sessionID, senderID string, state json.RawMessage) {
	sess, ok := r.GetSession(sessionID)
	if !ok {
		return
	}
	sess.RecordState(senderID, state)
	sess.SendToOpponent(senderID, map[string]any{
		"type":     "opponent_state",
		"playerId": senderID,
		"state":    state,
	})
}

// ForwardGameOver records sender's final state, marks the session finished,
// and relays the game_over to the opponent as opponent_game_over.
func (r *Registry) ForwardGameOver(sessionID, senderID string, state json.RawMessage) {
	sess, ok := r.GetSession(sessionID)
	if !ok {
		return
	}
	sess.RecordState(senderID, state)
	sess.MarkFinished()
	slog.Info("session: marked finished", "session_id", sessionID, "player_id", senderID)
	sess.SendToOpponent(senderID, map[string]any{
		"type":     "opponent_game_over",
		"playerId": senderID,
		"state":    state,
	})
}

// HandleDisconnect drops playerID's connection from the session, tells the
// opponent they left, and arms a cleanup timer once nobody is left
// connected.
func (r *Registry) HandleDisconnect(sessionID, playerID string) {
	sess, ok := r.GetSession(sessionID)
	if !ok {
		return
	}
	sess.RemoveConnection(playerID)
	sess.Broadcast(map[string]any{"type": "opponent_left", "playerId": playerID}, playerID)
	slog.Info("session: player disconnected", "session_id", sessionID, "player_id", playerID)

	if sess.ConnectedCount() == 0 {
		r.ScheduleCleanup(sessionID)
		slog.Info("session: no active connections, cleanup scheduled", "session_id", sessionID)
	}
}

// ScheduleCleanup arms a single cleanup-grace timer for sessionID. A second
// call while one is already armed is a no-op. When the timer fires, the
// session is removed only if it is still empty or already finished —
// otherwise a reconnect raced the timer and the session survives.
func (r *Registry) ScheduleCleanup(sessionID string) {
	grace := time.Duration(r.cfg.SessionCleanupGraceSeconds) * time.Second
	r.cleanupTimers.Arm(sessionID, grace, func() {
		sess, ok := r.GetSession(sessionID)
		if !ok {
			return
		}
		if sess.ConnectedCount() == 0 || sess.Finished() {
			slog.Info("session: cleanup executed", "session_id", sessionID)
			r.RemoveSession(sessionID)
		} else {
			slog.Debug("session: cleanup skipped, players still connected", "session_id", sessionID)
		}
	})
}

// CancelCleanup cancels sessionID's pending cleanup timer, if any.
func (r *Registry) CancelCleanup(sessionID string) {
	r.cleanupTimers.Cancel(sessionID)
}
