package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"lobby-relay-server/wsutil"
)

const gameWSPrefix = "/ws/game/"

// handleGameWS implements the /ws/game/{gameId} endpoint: the two matched
// players relay opaque state_update/game_over frames at each other for the
// lifetime of their session.
func (s *Server) handleGameWS(w http.ResponseWriter, r *http.Request) {
	gameID := strings.TrimPrefix(r.URL.Path, gameWSPrefix)
	playerID := r.URL.Query().Get("playerId")

	if playerID == "" {
		s.rejectPolicyViolation(w, r)
		return
	}
	sess, ok := s.sessions.GetSession(gameID)
	if !ok || !sess.IsMember(playerID) {
		s.rejectPolicyViolation(w, r)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := wsutil.New(raw)

	sess.AddConnection(playerID, conn)
	s.sessions.CancelCleanup(gameID)

	opponentID, opponentName, hasOpponent := sess.OpponentFor(playerID)
	var opponentPayload any
	if hasOpponent {
		opponentPayload = map[string]string{"id": opponentID, "name": opponentName}
	}
	conn.SafeSend(map[string]any{
		"type":     "connected",
		"you":      map[string]string{"id": playerID, "name": sess.Players[playerID]},
		"opponent": opponentPayload,
	})

	if sess.ConnectedCount() == len(sess.Players) {
		if !sess.Started() {
			sess.MarkStarted()
			sess.Broadcast(map[string]any{"type": "start"}, "")
		} else {
			sess.Broadcast(map[string]any{"type": "opponent_returned", "playerId": playerID}, playerID)
			conn.SafeSend(map[string]any{"type": "start"})
		}
	}

	if state, ok := sess.GetState(playerID); ok {
		conn.SafeSend(map[string]any{"type": "resume_state", "state": state})
	}
	if hasOpponent {
		if state, ok := sess.GetState(opponentID); ok {
			conn.SafeSend(map[string]any{"type": "opponent_state", "playerId": opponentID, "state": state})
		}
	}

	s.runGameLoop(conn, gameID, playerID)
	s.sessions.HandleDisconnect(gameID, playerID)
}

func (s *Server) runGameLoop(conn *wsutil.Conn, gameID, playerID string) {
	for {
		var msg incomingMessage
		if err := conn.ReceiveJSON(&msg); err != nil {
			return
		}
		if len(msg.State) == 0 || string(msg.State) == "null" {
			msg.State = []byte("{}")
		}
		switch msg.Type {
		case "state_update":
			s.sessions.ForwardState(gameID, playerID, msg.State)
		case "game_over":
			s.sessions.ForwardGameOver(gameID, playerID, msg.State)
		case "leave":
			return
		}
	}
}

func (s *Server) rejectPolicyViolation(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := wsutil.New(raw)
	conn.Close(websocket.ClosePolicyViolation)
}
