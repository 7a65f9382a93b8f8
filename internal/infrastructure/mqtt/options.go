package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"net"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/bonsai/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	defaultKeepAlive      = 60 * time.Second

	// Milliseconds paho waits for in-flight work on Disconnect.
	defaultDisconnectQuiesce = 1000

	maxQoS        = 2
	tlsMinVersion = tls.VersionTLS12
)

// Status reasons published on the system status topic.
const (
	reasonUnexpected = "unexpected_disconnect"
	reasonShutdown   = "graceful_shutdown"
)

// brokerURL is tcp://host:port, or ssl:// when TLS is on.
func brokerURL(b config.MQTTBrokerConfig) string {
	scheme := "tcp://"
	if b.TLS {
		scheme = "ssl://"
	}
	return scheme + net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// buildClientOptions maps the mqtt configuration section to paho options.
//
// Sessions are clean: nothing is queued on the broker for a producer that
// is offline. Reconnects back off from reconnect.initial_delay up to
// reconnect.max_delay. Message handlers run concurrently, so a slow filter
// update never stalls paho's router.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions().
		AddBroker(brokerURL(cfg.Broker)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(defaultConnectTimeout).
		SetWriteTimeout(defaultPublishTimeout).
		SetKeepAlive(defaultKeepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username).SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	return opts
}

// configureLWT registers a retained "offline" will on the status topic,
// so subscribers can tell a crashed producer from a clean shutdown.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics, clientID, instance string) {
	opts.SetWill(topics.SystemStatus(), buildStatusPayload("offline", clientID, instance, reasonUnexpected), 1, true)
}

// statusPayload is the retained body of <prefix>/system/status.
type statusPayload struct {
	Status    string `json:"status"`
	ClientID  string `json:"client_id"`
	Instance  string `json:"instance"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

func buildStatusPayload(status, clientID, instance, reason string) string {
	data, err := json.Marshal(statusPayload{
		Status:    status,
		ClientID:  clientID,
		Instance:  instance,
		Reason:    reason,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// Only string fields; cannot happen.
		return `{"status":"` + status + `"}`
	}
	return string(data)
}
