// Package lobby implements the lobby registry: the set of known players,
// their ready/FIFO matchmaking queue, and their reconnect-grace timers.
package lobby

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lobby-relay-server/config"
	"lobby-relay-server/gracetimer"
	"lobby-relay-server/wsutil"
)

// Player is the lobby's record for one participant.
type Player struct {
	ID        string
	Name      string
	Socket    *wsutil.Conn
	Connected bool
}

// PlayerSnapshot is the client-facing view of one player, sent in
// "joined" and "lobby_state" frames.
type PlayerSnapshot struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsReady     bool   `json:"isReady"`
	IsConnected bool   `json:"isConnected"`
}

// LiveSocket pairs a connected player's id with the socket to send to; used
// by BroadcastState and by the matchmaker to notify newly matched players.
type LiveSocket struct {
	PlayerID string
	Socket   *wsutil.Conn
}

// Registry owns players and the ready queue behind a single mutex: every
// operation that reads or mutates their joint state takes one critical
// section, and socket I/O always happens after the mutex is released.
// Reconnect timers live in a gracetimer.Table with its own lock;
// RegisterPlayer cancels a pending timer while still holding the registry
// mutex, and a timer's expiry re-checks the player under that mutex before
// removing it.
type Registry struct {
	cfg *config.Config

	mu         sync.Mutex
	players    map[string]*Player
	readyQueue []string

	reconnectTimers *gracetimer.Table
}

// NewRegistry creates an empty lobby registry.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		cfg:             cfg,
		players:         make(map[string]*Player),
		reconnectTimers: gracetimer.NewTable(),
	}
}

func (r *Registry) sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) > r.cfg.MaxNameLength {
		runes = runes[:r.cfg.MaxNameLength]
	}
	return string(runes)
}

func fallbackName(id string) string {
	runes := []rune(id)
	if len(runes) <= 6 {
		return id
	}
	return string(runes[:6])
}

// RegisterPlayer creates a new player, or re-adopts an existing one if
// requestedID names a known player (a reconnect). On reconnect the socket is
// rebound, connected is set true, the name is overwritten only if the
// sanitized name is non-empty, and any pending reconnect timer is cancelled.
// On a fresh player, requestedID is honored as the new id if provided
// (rather than minting a fresh one), per the spec's resolved open question.
func (r *Registry) RegisterPlayer(socket *wsutil.Conn, name string, requestedID string) *Player {
	sanitized := r.sanitizeName(name)

	r.mu.Lock()
	var player *Player
	if requestedID != "" {
		if existing, ok := r.players[requestedID]; ok {
			existing.Socket = socket
			existing.Connected = true
			if sanitized != "" {
				existing.Name = sanitized
			}
			player = existing
			slog.Info("lobby: player reconnected", "player_id", existing.ID, "name", existing.Name)
		}
	}
	if player == nil {
		id := requestedID
		if id == "" {
			id = uuid.NewString()
		}
		displayName := sanitized
		if displayName == "" {
			displayName = fallbackName(id)
		}
		player = &Player{ID: id, Name: displayName, Socket: socket, Connected: true}
		r.players[player.ID] = player
		slog.Info("lobby: player joined", "player_id", player.ID, "name", player.Name)
	}
	// Cancel inside the same critical section that rebinds the socket. The
	// timer's onExpire takes r.mu only after releasing the table's own lock,
	// so holding r.mu here cannot deadlock; a timer that already fired
	// re-checks Connected under r.mu and does nothing (see ScheduleDisconnect).
	r.reconnectTimers.Cancel(player.ID)
	r.mu.Unlock()
	return player
}

// RemovePlayer deletes a player from the registry, drops it from the ready
// queue if present, and cancels any pending reconnect timer. Safe to call
// for an id that no longer exists.
func (r *Registry) RemovePlayer(id string) {
	r.mu.Lock()
	_, existed := r.players[id]
	delete(r.players, id)
	r.readyQueue = removeID(r.readyQueue, id)
	r.mu.Unlock()

	r.reconnectTimers.Cancel(id)
	if existed {
		slog.Info("lobby: player removed", "player_id", id)
	}
}

// SetReady idempotently toggles whether id is in the FIFO ready queue.
func (r *Registry) SetReady(id string, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inQueue := contains(r.readyQueue, id)
	switch {
	case ready && !inQueue:
		r.readyQueue = append(r.readyQueue, id)
	case !ready && inQueue:
		r.readyQueue = removeID(r.readyQueue, id)
	}
}

// Snapshot returns the client-facing player list and the set of currently
// connected sockets to send it to, computed atomically under the lock.
func (r *Registry) Snapshot() ([]PlayerSnapshot, []LiveSocket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() ([]PlayerSnapshot, []LiveSocket) {
	payload := make([]PlayerSnapshot, 0, len(r.players))
	var live []LiveSocket
	for id, p := range r.players {
		payload = append(payload, PlayerSnapshot{
			ID:          id,
			Name:        p.Name,
			IsReady:     contains(r.readyQueue, id),
			IsConnected: p.Connected,
		})
		if p.Socket != nil {
			live = append(live, LiveSocket{PlayerID: id, Socket: p.Socket})
		}
	}
	return payload, live
}

// BroadcastState sends the current player list to every connected socket.
// Any socket whose send fails unexpectedly is treated as stale and its
// player is evicted, per the spec's stale-socket error handling (§7).
func (r *Registry) BroadcastState() {
	payload, live := r.Snapshot()
	message := struct {
		Type    string           `json:"type"`
		Players []PlayerSnapshot `json:"players"`
	}{Type: "lobby_state", Players: payload}

	var stale []string
	for _, target := range live {
		if err := target.Socket.TrySend(message); err != nil {
			stale = append(stale, target.PlayerID)
		}
	}
	for _, id := range stale {
		slog.Warn("lobby: dropping stale socket", "player_id", id)
		r.RemovePlayer(id)
	}
}

// ScheduleDisconnect marks id as disconnected (clearing its socket, pulling
// it out of the ready queue) and arms a single reconnect-grace timer. A
// second call while the timer is still armed is a no-op — this is what
// makes repeated disconnect signals safe.
func (r *Registry) ScheduleDisconnect(id string) {
	r.mu.Lock()
	player, ok := r.players[id]
	if ok {
		player.Socket = nil
		player.Connected = false
		r.readyQueue = removeID(r.readyQueue, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	grace := time.Duration(r.cfg.ReconnectGraceSeconds) * time.Second
	r.reconnectTimers.Arm(id, grace, func() {
		r.mu.Lock()
		player, stillPresent := r.players[id]
		shouldRemove := stillPresent && !player.Connected
		if shouldRemove {
			delete(r.players, id)
			r.readyQueue = removeID(r.readyQueue, id)
		}
		r.mu.Unlock()

		if shouldRemove {
			slog.Info("lobby: reconnect grace expired, removing player", "player_id", id)
			r.BroadcastState()
		}
	})
}

// TryPopEligiblePair pops the first two ready, connected player ids from the
// front of the ready queue, in FIFO order, and returns their records. It
// returns ok=false when fewer than two eligible ids remain. Called
// repeatedly by the matchmaker until it returns false.
func (r *Registry) TryPopEligiblePair() (a, b *Player, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var eligible []string
	for _, id := range r.readyQueue {
		if p, exists := r.players[id]; exists && p.Connected {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) < 2 {
		return nil, nil, false
	}
	firstID, secondID := eligible[0], eligible[1]
	r.readyQueue = removeID(removeID(r.readyQueue, firstID), secondID)

	first, firstOK := r.players[firstID]
	second, secondOK := r.players[secondID]
	if !firstOK || !secondOK {
		// Vanished between the eligibility scan and the pop (defensive;
		// cannot happen while both operations share r.mu, but guards
		// against future refactors that split the critical section).
		return nil, nil, true
	}
	return first, second, true
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	for i, existing := range ids {
		if existing == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
