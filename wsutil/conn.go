// Package wsutil is the transport adapter: it hides the raw *websocket.Conn
// behind a small surface (SafeSend, ReceiveJSON) so every handler treats
// socket I/O as best-effort and never has to reason about gorilla's
// single-writer restriction itself.
package wsutil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// ErrDisconnected is returned by ReceiveJSON when the peer is gone.
var ErrDisconnected = errors.New("wsutil: peer disconnected")

// Conn wraps a gorilla websocket connection with a write mutex, since a
// *websocket.Conn may not be written to concurrently and safeSend can be
// called both from a handler's own read loop and from another goroutine's
// broadcast/relay at the same time.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// New wraps an already-upgraded websocket connection and starts its
// keepalive ping loop.
func New(ws *websocket.Conn) *Conn {
	c := &Conn{ws: ws}
	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go c.pingLoop()
	return c
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		c.mu.Unlock()
		if err != nil {
			return
		}
	}
}

// SafeSend serializes payload as JSON and writes it as a text frame. Any
// error — peer gone, connection mid-close — is swallowed and logged at
// debug level; callers never see it and never retry.
func (c *Conn) SafeSend(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("wsutil: marshal failed", "error", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("wsutil: send failed, dropping silently", "error", err)
	}
}

// TrySend serializes payload as JSON and writes it as a text frame,
// returning the write error instead of swallowing it. Used by callers that
// need to detect a stale socket (e.g. broadcasting to a whole registry) so
// they can evict it; ordinary one-to-one sends should use SafeSend instead.
func (c *Conn) TrySend(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// ReceiveJSON blocks until one JSON frame arrives and decodes it into v.
// It returns ErrDisconnected for any read failure (peer gone, read
// deadline passed); any other error means the frame was not valid JSON for
// v, and the connection itself is left open.
func (c *Conn) ReceiveJSON(v any) error {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			slog.Debug("wsutil: unexpected close", "error", err)
		}
		return ErrDisconnected
	}
	return json.Unmarshal(data, v)
}

// Close closes the underlying connection with the given close code.
func (c *Conn) Close(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(code, "")
	c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
	c.ws.Close()
}
