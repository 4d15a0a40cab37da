// Package session implements the game-session registry: pairs of matched
// players relaying opaque state_update/game_over payloads at each other
// through the relay, and the cleanup-grace timer that tears a session down
// once both sides are gone.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"lobby-relay-server/wsutil"
)

// Session is one matched pair. The relay never interprets state or
// game_over payloads — they are stored and forwarded as raw JSON exactly as
// received, per the spec's opaque-relay invariant.
type Session struct {
	ID        string
	Players   map[string]string // playerID -> display name, exactly two entries
	CreatedAt time.Time         // set once at creation; read by the archival sink for durationMs

	mu          sync.Mutex
	connections map[string]*wsutil.Conn
	lastStates  map[string]json.RawMessage
	started     bool
	finished    bool
}

func newSession(id string, playerOneID, playerOneName, playerTwoID, playerTwoName string) *Session {
	return &Session{
		ID: id,
		Players: map[string]string{
			playerOneID: playerOneName,
			playerTwoID: playerTwoName,
		},
		CreatedAt:   time.Now(),
		connections: make(map[string]*wsutil.Conn),
		lastStates:  make(map[string]json.RawMessage),
	}
}

// OpponentFor returns the other player's id and name, or ok=false if
// playerID is not a member of this session.
func (s *Session) OpponentFor(playerID string) (id, name string, ok bool) {
	if _, member := s.Players[playerID]; !member {
		return "", "", false
	}
	for pid, name := range s.Players {
		if pid != playerID {
			return pid, name, true
		}
	}
	return "", "", false
}

// IsMember reports whether playerID is one of the two session members.
func (s *Session) IsMember(playerID string) bool {
	_, ok := s.Players[playerID]
	return ok
}

// AddConnection registers playerID's socket for this session.
func (s *Session) AddConnection(playerID string, conn *wsutil.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[playerID] = conn
}

// RemoveConnection drops playerID's socket, if present.
func (s *Session) RemoveConnection(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, playerID)
}

// ConnectedCount returns how many members currently have a live socket.
func (s *Session) ConnectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// MarkStarted records that the session has begun; Started reports it back.
func (s *Session) MarkStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
}

func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// MarkFinished records that a game_over has been relayed for this session.
func (s *Session) MarkFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
}

func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// RecordState stores playerID's most recent state (or game_over) payload
// verbatim, for replay via resume_state/opponent_state on reconnect.
func (s *Session) RecordState(playerID string, state json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStates[playerID] = state
}

// GetState returns playerID's most recently recorded payload, if any.
func (s *Session) GetState(playerID string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.lastStates[playerID]
	return state, ok
}

// SendToOpponent forwards payload to sender's opponent's socket, if the
// opponent currently has one connected. Best-effort: uses SafeSend.
func (s *Session) SendToOpponent(senderID string, payload any) {
	opponentID, _, ok := s.OpponentFor(senderID)
	if !ok {
		return
	}
	s.mu.Lock()
	conn, connected := s.connections[opponentID]
	s.mu.Unlock()
	if connected {
		conn.SafeSend(payload)
	}
}

// Broadcast sends payload to every connected member except exclude.
func (s *Session) Broadcast(payload any, exclude string) {
	s.mu.Lock()
	var targets []*wsutil.Conn
	for pid, conn := range s.connections {
		if pid != exclude {
			targets = append(targets, conn)
		}
	}
	s.mu.Unlock()
	for _, conn := range targets {
		conn.SafeSend(payload)
	}
}

// clear drops all connections and cached state; called once during removal.
func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections = make(map[string]*wsutil.Conn)
	s.lastStates = make(map[string]json.RawMessage)
}
