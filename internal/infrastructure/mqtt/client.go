package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/bonsai/internal/infrastructure/config"
)

// Client is a paho connection scoped to one Bonsai topic prefix.
//
// It announces the process on the status topic (retained "online", LWT
// "offline"), reconnects with backoff and restores its subscriptions
// after each reconnect. Driver publishes through it and
// SubscribeFilterControl listens through it.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - A zero Client behaves as disconnected.
type Client struct {
	client   pahomqtt.Client
	cfg      config.MQTTConfig
	topics   Topics
	instance string

	connected atomic.Bool

	subscriptions map[string]subscription
	subMu         sync.RWMutex

	hooksMu      sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger receives the client's own warnings and errors.
// *logging.Logger and *slog.Logger both satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler handles one inbound message. A returned error is logged
// as a warning; it does not affect acknowledgement.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker and waits for the session.
//
// The Last Will is registered before dialling so that a crash flips the
// status topic to "offline". Once connected, the client publishes its
// retained "online" status from the connect hook.
//
// Parameters:
//   - ctx: Abandons the wait when cancelled (a 10s cap also applies)
//   - cfg: mqtt section of the configuration
//   - instance: Process instance id carried in status payloads
//
// Returns:
//   - *Client: Connected client; call Close to announce shutdown
//   - error: ErrConnectionFailed wrapping the cause
func Connect(ctx context.Context, cfg config.MQTTConfig, instance string) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		topics:        Topics{Prefix: cfg.TopicPrefix},
		instance:      instance,
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID, instance)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT reconnecting", "broker", cfg.Broker.Host, "instance", instance)
		}
	})

	c.client = pahomqtt.NewClient(opts)

	waitCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()
	if err := await(waitCtx, c.client.Connect()); err != nil {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, err)
	}

	// The connect hook runs asynchronously; mark the session up now so
	// callers can publish straight away.
	c.connected.Store(true)
	return c, nil
}

// await waits for a paho token, the context or a timeout, whichever
// comes first.
func await(ctx context.Context, token pahomqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) handleConnect() {
	c.connected.Store(true)
	c.restoreSubscriptions()

	status := buildStatusPayload("online", c.cfg.Broker.ClientID, c.instance, "")
	c.client.Publish(c.topics.SystemStatus(), c.QoS(), true, status)

	c.hooksMu.RLock()
	callback := c.onConnect
	c.hooksMu.RUnlock()
	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connected.Store(false)

	c.hooksMu.RLock()
	callback := c.onDisconnect
	c.hooksMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// Close publishes a retained "offline" status with reason
// graceful_shutdown, so subscribers can tell a clean stop from a crash,
// then disconnects. Calling it more than once is safe.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		status := buildStatusPayload("offline", c.cfg.Broker.ClientID, c.instance, reasonShutdown)
		c.client.Publish(c.topics.SystemStatus(), c.QoS(), true, status).WaitTimeout(defaultPublishTimeout)
	}

	c.connected.Store(false)
	c.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

// HealthCheck reports whether the session is up.
//
// Parameters:
//   - ctx: Checked for cancellation first
//
// Returns:
//   - error: ctx error, ErrNotConnected, or nil
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known session state, confirmed with paho.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.client != nil && c.client.IsConnected()
}

// SetOnConnect sets a callback run after every (re)connect.
func (c *Client) SetOnConnect(callback func()) {
	c.hooksMu.Lock()
	c.onConnect = callback
	c.hooksMu.Unlock()
}

// SetOnDisconnect sets a callback run when the session is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.hooksMu.Lock()
	c.onDisconnect = callback
	c.hooksMu.Unlock()
}

// SetLogger sets where handler errors and panics are reported.
// Without one they are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.hooksMu.Lock()
	c.logger = logger
	c.hooksMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.hooksMu.RLock()
	defer c.hooksMu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho, recovering panics and
// logging returned errors.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}
