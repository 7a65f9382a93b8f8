package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/bonsai/internal/bonsai"
	"github.com/nerrad567/bonsai/internal/infrastructure/config"
	"github.com/nerrad567/bonsai/internal/infrastructure/event"
)

// testConfig returns a valid MQTT configuration for testing.
// Broker tests require a running Mosquitto broker at 127.0.0.1:1883.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "bonsai-test",
			TLS:      false,
		},
		QoS:         1,
		TopicPrefix: "bonsai-test",
		BufferSize:  16,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// skipIfNoBroker skips the test if nothing listens on the broker port.
func skipIfNoBroker(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "127.0.0.1:1883", 500*time.Millisecond)
	if err != nil {
		t.Skip("MQTT broker not available, skipping integration test")
	}
	conn.Close()
}

func connect(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	client, err := Connect(context.Background(), cfg, "test-instance")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	skipIfNoBroker(t)
	client := connect(t, "bonsai-test-connect")

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if client.Topics().Prefix != "bonsai-test" {
		t.Errorf("Topics().Prefix = %q", client.Topics().Prefix)
	}
}

func TestConnectInvalidBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19999

	_, err := Connect(context.Background(), cfg, "test-instance")
	if err == nil {
		t.Fatal("Connect() expected error for invalid broker")
	}

	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, testConfig(), "test-instance")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose(t *testing.T) {
	skipIfNoBroker(t)
	client := connect(t, "bonsai-test-close")

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}

func TestHealthCheck(t *testing.T) {
	skipIfNoBroker(t)
	client := connect(t, "bonsai-test-health")

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}

	client.Close()
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Publish / Subscribe Tests
// =============================================================================

func TestPublishLargePayload(t *testing.T) {
	skipIfNoBroker(t)
	client := connect(t, "bonsai-test-large")

	err := client.Publish("bonsai-test/large", make([]byte, maxPayloadSize+1), 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	skipIfNoBroker(t)
	client := connect(t, "bonsai-test-sub")

	topic := client.Topics().AllLogs()
	if err := client.Subscribe(topic, 1, func(string, []byte) error { return nil }); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(topic) || client.SubscriptionCount() != 1 {
		t.Error("subscription not tracked")
	}

	if err := client.Subscribe(topic, 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}

	if err := client.Unsubscribe(topic); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topic) {
		t.Error("subscription still tracked after Unsubscribe")
	}
}

func TestDriverRoundtrip(t *testing.T) {
	skipIfNoBroker(t)
	pubClient := connect(t, "bonsai-test-driver-pub")
	subClient := connect(t, "bonsai-test-driver-sub")

	received := make(chan event.Record, 4)
	err := subClient.Subscribe(subClient.Topics().All(), 1, func(topic string, payload []byte) error {
		if topic == subClient.Topics().SystemStatus() {
			return nil
		}
		var rec event.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return err
		}
		received <- rec
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	logger := bonsai.New()
	logger.Register(NewDriver(pubClient, DriverConfig{
		Topics:   pubClient.Topics(),
		QoS:      pubClient.QoS(),
		Instance: "test-instance",
	}))
	logger.Error("broker roundtrip")
	_ = logger.Close()

	select {
	case rec := <-received:
		if rec.Text != "broker roundtrip" || rec.Level != "error" {
			t.Errorf("record = %+v", rec)
		}
	case <-time.After(5 * time.Second):
		t.Error("Timeout waiting for message")
	}
}

func TestSubscribeFilterControl(t *testing.T) {
	skipIfNoBroker(t)
	client := connect(t, "bonsai-test-control")
	logger := bonsai.New()

	if err := SubscribeFilterControl(client, logger); err != nil {
		t.Fatalf("SubscribeFilterControl() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := client.Publish(client.Topics().FilterControl(), []byte(`{"debug_focus":true}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !logger.DebugFocusEnabled() {
		if time.Now().After(deadline) {
			t.Fatal("debug focus not enabled via control topic")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestWrapHandler(t *testing.T) {
	c := &Client{}
	logger := &recordingLogger{}
	c.SetLogger(logger)
	msg := fakeMessage{topic: "bonsai/control/filter", payload: []byte("x")}

	c.wrapHandler(func(string, []byte) error { return errors.New("bad payload") })(nil, msg)
	c.wrapHandler(func(string, []byte) error { panic("handler exploded") })(nil, msg)
	c.wrapHandler(func(string, []byte) error { return nil })(nil, msg)

	if len(logger.warns) != 1 {
		t.Errorf("warnings = %d, want 1", len(logger.warns))
	}
	if len(logger.errors) != 1 {
		t.Errorf("errors = %d, want 1", len(logger.errors))
	}
}
