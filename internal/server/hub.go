package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kqstats/stats-server-go/internal/stats"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	// Overlays are served from arbitrary hosts on the venue network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSMessage is the envelope sent to overlay clients.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// SnapshotFunc returns the current counters for a newly connected client.
type SnapshotFunc func() stats.State

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans stat changes out to every connected overlay.
type Hub struct {
	snapshot   SnapshotFunc
	sendBuffer int
	logger     *zap.Logger

	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	count      chan chan int
	done       chan struct{}
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(snapshot SnapshotFunc, sendBuffer int, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		snapshot:   snapshot,
		sendBuffer: sendBuffer,
		logger:     logger,
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.sendSnapshot(c)
			h.logger.Debug("overlay connected", zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("overlay disconnected", zap.Int("clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				h.deliver(c, message)
			}

		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Publish queues a change for every connected client. It is meant to be
// registered as an engine change callback.
func (h *Hub) Publish(change stats.Change) {
	message, err := json.Marshal(WSMessage{Type: "stat", Data: change})
	if err != nil {
		h.logger.Error("failed to encode stat", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// sendSnapshot runs on the hub goroutine so no broadcast can interleave.
func (h *Hub) sendSnapshot(c *client) {
	if h.snapshot == nil {
		return
	}
	state := h.snapshot()
	for _, e := range stats.Entities {
		for _, s := range stats.Statistics {
			message, err := json.Marshal(WSMessage{
				Type: "stat",
				Data: stats.Change{Entity: e, Statistic: s, Value: state[e][s]},
			})
			if err != nil {
				h.logger.Error("failed to encode snapshot", zap.Error(err))
				return
			}
			if !h.deliver(c, message) {
				return
			}
		}
	}
}

// deliver drops clients whose buffer is full.
func (h *Hub) deliver(c *client, message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		h.logger.Warn("dropping slow overlay client")
		close(c.send)
		delete(h.clients, c)
		return false
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.sendBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

// readPump discards client input and detects disconnects.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(1 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
