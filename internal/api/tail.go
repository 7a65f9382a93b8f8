package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient is one live-tail connection.
type WSClient struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	subscriptions map[string]struct{}

	mu     sync.RWMutex
	closed bool
}

// wsRequest is an inbound frame; the payload is decoded per type.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// handleTail upgrades to a WebSocket and starts the client's pumps.
func (s *Server) handleTail(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err, "request_id", requestID(r.Context()))
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, s.hub.cfg.SendBuffer),
		subscriptions: map[string]struct{}{ChannelLog: {}},
	}
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

func (c *WSClient) pingInterval() time.Duration {
	return time.Duration(c.hub.cfg.PingInterval) * time.Second
}

func (c *WSClient) pongWait() time.Duration {
	return time.Duration(c.hub.cfg.PongTimeout) * time.Second
}

// readPump handles inbound frames until the connection fails, then
// unregisters the client.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // already failing
	}()

	idle := c.pingInterval() + c.pongWait()
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(idle)) }

	c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageSize))
	extend() //nolint:errcheck // surfaced by the first read
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("tail read failed", "error", err)
			}
			return
		}
		extend() //nolint:errcheck // surfaced by the next read
		c.handleMessage(data)
	}
}

// writePump drains send and pings on an interval. It exits when send is
// closed or a write fails.
func (c *WSClient) writePump() {
	ticker := time.NewTicker(c.pingInterval())
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // readPump sees the failure
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(c.pongWait())) //nolint:errcheck // surfaced by the write
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // closing anyway
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleMessage(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply("", WSTypeError, errorPayload("invalid JSON message"))
		return
	}

	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.changeSubscriptions(req)
	case WSTypePing:
		c.reply(req.ID, WSTypePong, nil)
	default:
		c.reply(req.ID, WSTypeError, errorPayload("unknown message type: "+req.Type))
	}
}

// changeSubscriptions applies a subscribe or unsubscribe request. The
// whole request is rejected if any channel is unknown.
func (c *WSClient) changeSubscriptions(req wsRequest) {
	var sub WSSubscribePayload
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &sub); err != nil {
			c.reply(req.ID, WSTypeError, errorPayload("invalid "+req.Type+" payload"))
			return
		}
	}
	for _, ch := range sub.Channels {
		if !knownChannel(ch) {
			c.reply(req.ID, WSTypeError, errorPayload("unknown channel: "+ch))
			return
		}
	}

	subscribe := req.Type == WSTypeSubscribe
	c.mu.Lock()
	for _, ch := range sub.Channels {
		if subscribe {
			c.subscriptions[ch] = struct{}{}
		} else {
			delete(c.subscriptions, ch)
		}
	}
	c.mu.Unlock()

	key := "unsubscribed"
	if subscribe {
		key = "subscribed"
	}
	c.reply(req.ID, WSTypeResponse, map[string]any{key: sub.Channels})
}

// trySend queues data without blocking and reports false if the buffer is
// full. Sends after closeSend are discarded and report true.
func (c *WSClient) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel once.
func (c *WSClient) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *WSClient) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

func errorPayload(message string) map[string]string {
	return map[string]string{"message": message}
}
