// Package matchmaking implements the FIFO pairing pass that turns ready
// lobby players into game sessions.
package matchmaking

import (
	"log/slog"

	"lobby-relay-server/lobby"
	"lobby-relay-server/session"
)

type pendingMatch struct {
	playerOne *lobby.Player
	playerTwo *lobby.Player
	sess      *session.Session
}

// TryMatchmake drains the lobby's ready queue two players at a time, FIFO,
// creating a session per pair. It loops until fewer than two eligible
// players remain, then broadcasts the updated lobby state exactly once —
// not once per pair — and only then sends each pair its match_found
// notification. This ordering (and the single broadcast) mirrors the
// reference matchmaking pass this relay is modeled on.
func TryMatchmake(lobbyRegistry *lobby.Registry, sessionRegistry *session.Registry) {
	var matches []pendingMatch

	for {
		a, b, ok := lobbyRegistry.TryPopEligiblePair()
		if !ok {
			break
		}
		if a == nil || b == nil {
			continue
		}
		slog.Info("matchmaking: paired players", "player_one", a.ID, "player_two", b.ID)
		sess := sessionRegistry.CreateSession(a.ID, a.Name, b.ID, b.Name)
		matches = append(matches, pendingMatch{playerOne: a, playerTwo: b, sess: sess})
	}

	if len(matches) == 0 {
		return
	}

	lobbyRegistry.BroadcastState()

	for _, m := range matches {
		sendMatchFound(m.playerOne, m.playerTwo, m.sess)
		sendMatchFound(m.playerTwo, m.playerOne, m.sess)
	}
}

func sendMatchFound(recipient, opponent *lobby.Player, sess *session.Session) {
	if recipient.Socket == nil {
		return
	}
	recipient.Socket.SafeSend(map[string]any{
		"type":   "match_found",
		"gameId": sess.ID,
		"opponent": map[string]string{
			"id":   opponent.ID,
			"name": opponent.Name,
		},
	})
}
