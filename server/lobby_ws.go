package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"lobby-relay-server/matchmaking"
	"lobby-relay-server/wsutil"
)

// handleLobbyWS implements the /ws/lobby endpoint: join, set_ready, and
// leave, followed by a reconnect-grace window on abnormal disconnect.
func (s *Server) handleLobbyWS(w http.ResponseWriter, r *http.Request) {
	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("lobby ws: upgrade failed", "error", err)
		return
	}
	conn := wsutil.New(raw)

	var playerID string
	for {
		var msg incomingMessage
		if err := conn.ReceiveJSON(&msg); err != nil {
			break
		}

		switch msg.Type {
		case "join":
			if playerID != "" {
				continue
			}
			name := strings.TrimSpace(msg.Name)
			if name == "" && msg.PlayerID == "" {
				conn.SafeSend(newErrorMessage("Name is required"))
				continue
			}
			player := s.lobby.RegisterPlayer(conn, name, msg.PlayerID)
			playerID = player.ID

			payload, _ := s.lobby.Snapshot()
			conn.SafeSend(map[string]any{
				"type":       "joined",
				"playerId":   playerID,
				"playerName": player.Name,
				"players":    payload,
			})
			s.lobby.BroadcastState()

		case "set_ready":
			if playerID == "" {
				continue
			}
			s.lobby.SetReady(playerID, msg.Ready)
			s.lobby.BroadcastState()
			matchmaking.TryMatchmake(s.lobby, s.sessions)

		case "leave":
			if playerID == "" {
				continue
			}
			s.lobby.RemovePlayer(playerID)
			s.lobby.BroadcastState()
			conn.Close(websocket.CloseNormalClosure)
			return
		}
	}

	if playerID != "" {
		s.lobby.ScheduleDisconnect(playerID)
	}
}
