// Package realtime pushes committed changes to connected browsers over
// websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"dompet/internal/events"
	"dompet/internal/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
	busBuffer      = 64
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks websocket clients and broadcasts every bus event to them as
// JSON. A client that cannot keep up is disconnected.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	done       chan struct{}
	count      atomic.Int32
	upgrader   websocket.Upgrader
	logger     *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default(log.ComponentRealtime)
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.WithComponent(log.ComponentRealtime),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Run fans bus events out to clients until ctx ends. It must be called once.
func (h *Hub) Run(ctx context.Context, bus *events.Bus) error {
	feed, cancel := bus.Subscribe(busBuffer)
	defer close(h.done)
	defer h.closeAll()
	defer cancel()

	h.logger.Info("Realtime hub started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Realtime hub stopping", "clients", len(h.clients))
			return nil
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int32(len(h.clients)))
			h.logger.Debug("Websocket client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			h.drop(c)
			h.logger.Debug("Websocket client disconnected", "clients", len(h.clients))
		case e, ok := <-feed:
			if !ok {
				return nil
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("Failed to marshal event", log.FieldError, err)
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.logger.Warn("Dropping slow websocket client")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.count.Store(int32(len(h.clients)))
	}
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		h.drop(c)
	}
}

// ServeHTTP upgrades the request and serves the client until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade to websocket", log.FieldError, err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump()

	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// readPump discards client messages and returns once the connection fails.
func (c *client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
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
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
