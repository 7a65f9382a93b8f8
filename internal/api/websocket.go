package api

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/bonsai/internal/bonsai"
	"github.com/nerrad567/bonsai/internal/infrastructure/config"
	"github.com/nerrad567/bonsai/internal/infrastructure/event"
	"github.com/nerrad567/bonsai/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Tail channels. New clients start subscribed to ChannelLog.
const (
	ChannelLog   = "log"
	ChannelStore = "store"
)

// Fallbacks for zero WebSocket settings.
const (
	defaultSendBuffer     = 64
	defaultMaxMessageSize = 8192
	defaultPingInterval   = 30
	defaultPongTimeout    = 10
)

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload of subscribe and unsubscribe.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

func knownChannel(ch string) bool {
	return ch == ChannelLog || ch == ChannelStore
}

// Hub fans admitted façade events out to live-tail clients.
//
// The hub is a bonsai driver: once registered, message and metadata events
// are broadcast on ChannelLog and store payloads on ChannelStore, each as
// an event.Record. With no clients connected the driver methods return
// without encoding anything.
//
// Broadcasts never block. A client whose buffer is full misses the event
// and Dropped is incremented.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}

	dropped atomic.Uint64
}

// NewHub creates a hub. Zero settings take defaults, and a nil logger
// falls back to logging.Default.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	cfg.SendBuffer = orDefault(cfg.SendBuffer, defaultSendBuffer)
	cfg.MaxMessageSize = orDefault(cfg.MaxMessageSize, defaultMaxMessageSize)
	cfg.PingInterval = orDefault(cfg.PingInterval, defaultPingInterval)
	cfg.PongTimeout = orDefault(cfg.PongTimeout, defaultPongTimeout)
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger.Component("tail"),
		clients: make(map[*WSClient]struct{}),
	}
}

func orDefault(v, def int) int {
	if v < 1 {
		return def
	}
	return v
}

// Name identifies the hub in driver listings.
func (h *Hub) Name() string { return "websocket" }

// LogMessage implements bonsai.Driver. It broadcasts on ChannelLog and
// does nothing while no client is connected.
func (h *Hub) LogMessage(level bonsai.Level, text string, origin bonsai.Origin) {
	if h.ClientCount() > 0 {
		h.Broadcast(ChannelLog, event.Message(level, text, origin))
	}
}

// LogMetadata implements bonsai.Driver, broadcasting on ChannelLog.
func (h *Hub) LogMetadata(level bonsai.Level, metadata bonsai.Metadata, origin bonsai.Origin) {
	if h.ClientCount() > 0 {
		h.Broadcast(ChannelLog, event.FromMetadata(level, metadata, origin))
	}
}

// Store implements bonsai.Driver, broadcasting on ChannelStore.
func (h *Hub) Store(metadata bonsai.Metadata) {
	if h.ClientCount() > 0 {
		h.Broadcast(ChannelStore, event.Store(metadata))
	}
}

// Dropped counts per-client deliveries skipped on a full buffer.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Run disconnects every client once ctx is done.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.disconnectAll()
}

// Close disconnects every client. New clients may still connect.
func (h *Hub) Close() error {
	h.disconnectAll()
	return nil
}

// Register adds a client.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("tail client connected", "clients", n)
}

// Unregister removes a client and closes its send channel. Calling it for
// a client that is already gone does nothing.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	client.closeSend()
	h.logger.Debug("tail client disconnected", "clients", n)
}

// Broadcast encodes payload once and queues it for every client subscribed
// to channel.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding tail event", "channel", channel, "error", err)
		return
	}

	// Client locks are never taken while holding the hub lock.
	for _, c := range h.snapshot() {
		if c.isSubscribed(channel) && !c.trySend(data) {
			h.dropped.Add(1)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshot() []*WSClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.closeSend()
		if c.conn != nil {
			c.conn.Close() //nolint:errcheck // shutting down
		}
	}
}
