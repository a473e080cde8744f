package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/gohome/internal/infrastructure/config"
	"github.com/nerrad567/gohome/internal/infrastructure/logging"
	"github.com/nerrad567/gohome/internal/topic"
)

const (
	// wsSendBufferSize is the per-client outbound message buffer size.
	// A client whose buffer fills up is disconnected.
	wsSendBufferSize = 256

	defaultPingInterval = 30 * time.Second
	defaultPongWait     = 10 * time.Second
)

// keepalive returns the ping interval and pong wait from cfg, falling
// back to defaults for unset values.
func keepalive(cfg config.WebSocketConfig) (pingInterval, pongWait time.Duration) {
	pingInterval = time.Duration(cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	pongWait = time.Duration(cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = defaultPongWait
	}
	return pingInterval, pongWait
}

// Hub manages push channel connections and fans topic messages out to
// the clients subscribed to them.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected push channel client.
type WSClient struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	topics map[topic.Topic]struct{}
	mu     sync.RWMutex
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new push hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metricWSClients.Set(float64(n))
	h.logger.Debug("websocket client connected", "client_id", client.id, "clients", n)
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(client.send)
		metricWSClients.Set(float64(n))
		h.logger.Debug("websocket client disconnected", "client_id", client.id, "clients", n)
	}
}

// Broadcast sends message to every client subscribed to t.
func (h *Hub) Broadcast(t topic.Topic, message any) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encoding %s message: %w", t, err)
	}
	return h.deliver(t, raw)
}

// deliver sends an already encoded message to the subscribers of t.
// A publishing client subscribed to t receives its own message.
//
// Lock ordering: the hub lock is released before per-client subscription
// checks, so hub and client locks are never held together.
func (h *Hub) deliver(t topic.Topic, raw json.RawMessage) error {
	data, err := json.Marshal(topic.Delivery{Action: topic.ActionBroadcast, Topic: t, Message: raw})
	if err != nil {
		return fmt.Errorf("encoding %s delivery: %w", t, err)
	}

	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if !client.isSubscribed(t) {
			continue
		}
		if !client.trySend(data) {
			metricWSDropped.Inc()
			h.logger.Warn("dropping slow websocket client", "client_id", client.id, "topic", t)
			h.Unregister(client)
			continue
		}
		sent++
	}
	if sent > 0 {
		metricWSDeliveries.WithLabelValues(string(t)).Add(float64(sent))
		h.logger.Debug("broadcast sent", "topic", t, "recipients", sent)
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCounts returns the number of subscribed clients per topic.
func (h *Hub) SubscriberCounts() map[string]int {
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	counts := make(map[string]int)
	for _, t := range topic.All() {
		counts[string(t)] = 0
	}
	for _, client := range clients {
		client.mu.RLock()
		for t := range client.topics {
			counts[string(t)]++
		}
		client.mu.RUnlock()
	}
	return counts
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
	metricWSClients.Set(0)
}

// handleWebSocket upgrades the HTTP connection to a push channel.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	hub := s.Hub()
	client := &WSClient{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, wsSendBufferSize),
		topics: make(map[topic.Topic]struct{}),
	}

	hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads frames from the connection until it fails.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	pingInterval, pongWait := keepalive(cfg)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "client_id", c.id, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "client_id", c.id, "error", err)
			}
			return
		}
		// Any client frame counts as liveness.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes queued frames and keepalive pings.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval, pongWait := keepalive(cfg)
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one client frame. The protocol has no error
// frames, so bad input is logged and dropped.
func (c *WSClient) handleMessage(data []byte) {
	var req topic.Request
	if err := json.Unmarshal(data, &req); err != nil {
		c.hub.logger.Debug("dropping malformed websocket frame", "client_id", c.id, "error", err)
		return
	}
	if !req.Topic.Valid() {
		c.hub.logger.Debug("dropping frame for unknown topic", "client_id", c.id, "topic", req.Topic)
		return
	}

	switch req.Action {
	case topic.ActionSubscribe:
		c.mu.Lock()
		c.topics[req.Topic] = struct{}{}
		c.mu.Unlock()
		c.hub.logger.Debug("websocket client subscribed", "client_id", c.id, "topic", req.Topic)
	case topic.ActionUnsubscribe:
		c.mu.Lock()
		delete(c.topics, req.Topic)
		c.mu.Unlock()
	case topic.ActionPublish:
		message := req.Message
		if message == nil {
			message = json.RawMessage("null")
		}
		//nolint:errcheck // deliver only fails to encode a valid RawMessage on a bug
		c.hub.deliver(req.Topic, message)
	default:
		c.hub.logger.Debug("dropping frame with unknown action", "client_id", c.id, "action", req.Action)
	}
}

// trySend queues data for the client. It reports false when the buffer
// is full or the client is already gone.
func (c *WSClient) trySend(data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// isSubscribed checks if the client is subscribed to a topic.
func (c *WSClient) isSubscribed(t topic.Topic) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[t]
	return ok
}
