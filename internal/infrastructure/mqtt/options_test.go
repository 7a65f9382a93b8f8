package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/nerrad567/bonsai/internal/infrastructure/config"
)

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "bonsai"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want tcp://127.0.0.1:1883", opts.Servers)
	}
	if opts.ClientID != cfg.Broker.ClientID {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, cfg.Broker.ClientID)
	}
	if opts.Username != "bonsai" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect || !opts.CleanSession {
		t.Error("expected auto-reconnect and clean session")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if opts.Servers[0].String() != "ssl://127.0.0.1:8883" {
		t.Errorf("Servers[0] = %v, want ssl scheme", opts.Servers[0])
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS minimum version not set")
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name   string
		broker config.MQTTBrokerConfig
		want   string
	}{
		{"plain", config.MQTTBrokerConfig{Host: "broker.local", Port: 1883}, "tcp://broker.local:1883"},
		{"tls", config.MQTTBrokerConfig{Host: "broker.local", Port: 8883, TLS: true}, "ssl://broker.local:8883"},
		{"ipv6", config.MQTTBrokerConfig{Host: "::1", Port: 1883}, "tcp://[::1]:1883"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := brokerURL(tt.broker); got != tt.want {
				t.Errorf("brokerURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildClientOptions_HandlersUnordered(t *testing.T) {
	opts := buildClientOptions(testConfig())
	if opts.Order {
		t.Error("message handlers should not be serialised")
	}
	if opts.WriteTimeout != defaultPublishTimeout {
		t.Errorf("WriteTimeout = %v, want %v", opts.WriteTimeout, defaultPublishTimeout)
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())

	configureLWT(opts, Topics{Prefix: "site"}, "bonsai-test", "instance-1")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Error("will should be enabled and retained")
	}
	if opts.WillTopic != "site/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var status statusPayload
	if err := json.Unmarshal(opts.WillPayload, &status); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if status.Status != "offline" || status.Reason != "unexpected_disconnect" || status.Instance != "instance-1" {
		t.Errorf("will payload = %+v", status)
	}
}

func TestBuildStatusPayload(t *testing.T) {
	var status statusPayload
	if err := json.Unmarshal([]byte(buildStatusPayload("online", "c1", "i1", "")), &status); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if status.Status != "online" || status.ClientID != "c1" || status.Reason != "" {
		t.Errorf("payload = %+v", status)
	}
	if status.Timestamp == "" {
		t.Error("timestamp is empty")
	}
}

func TestClient_DisconnectedOperations(t *testing.T) {
	c := &Client{cfg: config.MQTTConfig{QoS: 1}, subscriptions: make(map[string]subscription)}

	if c.IsConnected() {
		t.Error("IsConnected() = true for unconnected client")
	}
	if err := c.Publish("", nil, 0, false); err != ErrInvalidTopic {
		t.Errorf("Publish(empty topic) = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("bonsai/x", nil, 3, false); err != ErrInvalidQoS {
		t.Errorf("Publish(qos 3) = %v, want ErrInvalidQoS", err)
	}
	if err := c.Publish("bonsai/x", nil, 1, false); err != ErrNotConnected {
		t.Errorf("Publish() = %v, want ErrNotConnected", err)
	}
	if err := c.Subscribe("bonsai/x", 1, func(string, []byte) error { return nil }); err != ErrNotConnected {
		t.Errorf("Subscribe() = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
	if c.QoS() != 1 {
		t.Errorf("QoS() = %d, want 1", c.QoS())
	}
}
