// Package server wires the lobby and game WebSocket endpoints to the
// lobby/session registries and the matchmaker, and exposes the HTTP
// bootstrap (health check, CORS, routing) around them.
package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"lobby-relay-server/config"
	"lobby-relay-server/lobby"
	"lobby-relay-server/session"
)

// Server holds every dependency the two WebSocket endpoints need.
type Server struct {
	cfg      *config.Config
	lobby    *lobby.Registry
	sessions *session.Registry
	upgrader websocket.Upgrader
}

// New builds a Server. Its upgrader's CheckOrigin is the originAllowed
// method, which admits a request whose Origin header is empty or is on the
// config's CORS allow-list.
func New(cfg *config.Config, lobbyRegistry *lobby.Registry, sessionRegistry *session.Registry) *Server {
	s := &Server{cfg: cfg, lobby: lobbyRegistry, sessions: sessionRegistry}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
	return s
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSAllowOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Mux returns the fully wired HTTP handler for this server.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWelcome)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws/lobby", s.handleLobbyWS)
	mux.HandleFunc("/ws/game/", s.handleGameWS)
	return withCORS(s.cfg, mux)
}

