package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handsignal/internal/display"
	"github.com/ayusman/handsignal/internal/logging"
)

const (
	hubWriteWait  = 5 * time.Second
	hubPongWait   = 60 * time.Second
	hubPingPeriod = (hubPongWait * 9) / 10
	hubSendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusHub is a Display that pushes every status and countdown change to
// websocket clients as a display.Snapshot.
type StatusHub struct {
	log logging.Logger

	mu      sync.Mutex
	cur     display.Snapshot
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewStatusHub creates a hub with no clients.
func NewStatusHub(log logging.Logger) *StatusHub {
	return &StatusHub{
		log:     logging.Component(log, "status-hub"),
		clients: make(map[*hubClient]struct{}),
	}
}

// SetStatus implements display.Display.
func (h *StatusHub) SetStatus(text string) {
	h.mu.Lock()
	changed := h.cur.Status != text
	h.cur.Status = text
	snap := h.cur
	h.mu.Unlock()

	if changed {
		h.broadcast(snap)
	}
}

// SetCountdown implements display.Display.
func (h *StatusHub) SetCountdown(text string) {
	h.mu.Lock()
	changed := h.cur.Countdown != text
	h.cur.Countdown = text
	snap := h.cur
	h.mu.Unlock()

	if changed {
		h.broadcast(snap)
	}
}

// Snapshot returns the text currently shown.
func (h *StatusHub) Snapshot() display.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur
}

// Clients returns the number of connected clients.
func (h *StatusHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast queues snap on every client. Clients whose buffer is full are
// disconnected.
func (h *StatusHub) broadcast(snap display.Snapshot) {
	msg, err := json.Marshal(snap)
	if err != nil {
		h.log.WithError(err).Error("Failed to encode snapshot")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.WithField("remote", c.conn.RemoteAddr().String()).Warn("Client too slow, disconnecting")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ServeHTTP upgrades the request and streams snapshots until the client
// goes away. The current snapshot is sent first.
func (h *StatusHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, hubSendBuffer)}

	h.mu.Lock()
	first, _ := json.Marshal(h.cur)
	c.send <- first
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

func (h *StatusHub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump discards client messages and detects disconnects.
func (h *StatusHub) readPump(c *hubClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(hubPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StatusHub) writePump(c *hubClient) {
	ticker := time.NewTicker(hubPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client.
func (h *StatusHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
