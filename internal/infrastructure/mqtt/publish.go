package mqtt

import (
	"context"
	"fmt"
)

// maxPayloadSize caps one message at 1MB, the common broker default.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to acknowledge
// it (for QoS 1 and 2) or for the write to complete (QoS 0).
//
// Only the status topic is published retained; log events and store
// payloads never are, so late subscribers do not replay stale events.
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected, or
//     ErrPublishFailed (oversized payload, timeout, broker error)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	case !c.IsConnected():
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()
	if err := await(ctx, c.client.Publish(topic, qos, retained, payload)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// QoS returns the configured QoS for Bonsai traffic.
func (c *Client) QoS() byte {
	// #nosec G115 -- config validation limits qos to 0..2
	return byte(c.cfg.QoS)
}
