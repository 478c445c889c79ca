// Package ws implements the push channel: a websocket hub that fans encoded
// events out to every connected client.
package ws

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/pulseboard/internal/domain"
	"github.com/alanyoungcy/pulseboard/internal/observability/metrics"
)

const (
	writeWait = 10 * time.Second

	// A client that sends no pong within pongWait is dropped. Pings go out
	// every pingPeriod, which stays below pongWait.
	pongWait   = time.Minute
	pingPeriod = pongWait * 9 / 10

	// Inbound frames are discarded, so they are kept small.
	maxMessageSize = 1024

	// Events queued per client before the hub starts dropping for it.
	sendBufferSize = 64
)

type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected push clients and broadcasts events to all of them.
// The client registry is owned by the Run loop; per-client delivery order
// equals broadcast order.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHub creates a Hub. Browser upgrades are accepted only from origins;
// with none given every origin is accepted. Requests without an Origin header
// (non-browser clients) are always accepted. Call Run before accepting
// connections.
func NewHub(logger *slog.Logger, origins ...string) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
		logger: logger.With(slog.String("component", "push")),
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, closing
// every client connection.
func (h *Hub) Run(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			metrics.PushClients.Set(0)
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.PushClients.Set(float64(n))
			h.logger.Info("push: client connected",
				slog.String("client_id", c.id),
				slog.Int("total_clients", n),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[c]
			if ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			if ok {
				metrics.PushClients.Set(float64(n))
				h.logger.Info("push: client disconnected",
					slog.String("client_id", c.id),
					slog.Int("total_clients", n),
				)
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					metrics.PushDroppedTotal.Inc()
					h.logger.Warn("push: dropping message for slow client",
						slog.String("client_id", c.id),
					)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish encodes payload under event and broadcasts it.
func (h *Hub) Publish(ctx context.Context, event string, payload any) error {
	msg, err := domain.NewPushEvent(event, payload)
	if err != nil {
		return fmt.Errorf("ws: encode %s: %w", event, err)
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return fmt.Errorf("ws: hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Forward broadcasts an already-encoded event, typically one relayed from
// another replica. It is a no-op once the hub has stopped.
func (h *Hub) Forward(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the request and registers the connection.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("push: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump drains inbound frames, which carry no meaning on this channel,
// and detects disconnects.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("push: unexpected close error",
					slog.String("client_id", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// writePump sends queued events as text frames plus periodic pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
