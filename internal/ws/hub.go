// README: WebSocket transport: each connection is a broker observer that subscribes to order rooms.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tracker/internal/broker"
	"tracker/internal/errs"
	"tracker/internal/types"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

var ErrQueueFull = errors.New("send queue full")

// Subscriber is the engine surface a connection needs.
type Subscriber interface {
	Subscribe(ctx context.Context, orderID types.ID, obs broker.Observer, actor types.Actor) error
	Unsubscribe(orderID types.ID, obs broker.Observer)
}

type Hub struct {
	engine   Subscriber
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(engine Subscriber, allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		engine:  engine,
		logger:  logger.With("component", "ws"),
		clients: make(map[string]*Client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// ServeWS upgrades an already authenticated request.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, actor types.Actor) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "error", err)
		return
	}

	c := newClient(types.NewID().String(), actor, conn, h)
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Info("client connected", "client_id", c.id, "actor_id", actor.ID, "role", actor.Role)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
	h.engine.Unsubscribe("", c)
	c.close()
	h.logger.Info("client disconnected", "client_id", c.id)
}

// Connected returns the number of open connections.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}

// inbound is a message sent by the browser or app.
type inbound struct {
	Type    string   `json:"type"`
	OrderID types.ID `json:"orderId"`
}

// reply is a control message that is not a broker event.
type reply struct {
	Type    string   `json:"type"`
	OrderID types.ID `json:"orderId,omitempty"`
	Error   string   `json:"error,omitempty"`
	Code    string   `json:"code,omitempty"`
}

func (h *Hub) handle(c *Client, msg inbound) {
	switch msg.Type {
	case "subscribe", "order:subscribe", "join-order":
		if msg.OrderID == "" {
			c.reply(reply{Type: "error", Error: "orderId is required", Code: "bad_request"})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		if err := h.engine.Subscribe(ctx, msg.OrderID, c, c.actor); err != nil {
			c.reply(reply{Type: "error", OrderID: msg.OrderID, Error: err.Error(), Code: errorCode(err)})
			return
		}
	case "unsubscribe":
		h.engine.Unsubscribe(msg.OrderID, c)
		c.reply(reply{Type: "unsubscribed", OrderID: msg.OrderID})
	case "ping":
		c.reply(reply{Type: "pong"})
	default:
		c.reply(reply{Type: "error", Error: "unknown message type " + msg.Type, Code: "bad_request"})
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrUnauthorized):
		return "forbidden"
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return "unavailable"
	}
	return "internal"
}

// Client is one websocket connection and one broker observer.
type Client struct {
	id    string
	actor types.Actor
	conn  *websocket.Conn
	hub   *Hub

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, actor types.Actor, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{id: id, actor: actor, conn: conn, hub: hub, send: make(chan []byte, sendBuffer)}
}

func (c *Client) ID() string { return c.id }

// Deliver queues evt without blocking. A full queue drops the event for this
// client only.
func (c *Client) Deliver(evt broker.Event) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return c.enqueue(b)
}

func (c *Client) reply(r reply) {
	b, _ := json.Marshal(r)
	if err := c.enqueue(b); err != nil {
		c.hub.logger.Warn("reply dropped", "client_id", c.id, "error", err)
	}
}

func (c *Client) enqueue(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("read failed", "client_id", c.id, "error", err)
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(reply{Type: "error", Error: "malformed message", Code: "bad_request"})
			continue
		}
		c.hub.handle(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
