package mqtt

import (
	"context"
	"fmt"
)

// Subscribe registers handler for topic (wildcards allowed) and remembers
// it so the subscription survives reconnects.
//
//	err := client.Subscribe(client.Topics().FilterControl(), 1, handler)
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected, or
//     ErrSubscribeFailed wrapping the broker's answer
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	case !c.IsConnected():
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()
	if err := await(ctx, c.client.Subscribe(topic, qos, c.wrapHandler(handler))); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()
	return nil
}

// Unsubscribe forgets topic and asks the broker to stop delivering it.
// Messages already in flight may still arrive.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultPublishTimeout)
	defer cancel()
	if err := await(ctx, c.client.Unsubscribe(topic)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, topic, err)
	}
	return nil
}

// restoreSubscriptions replays every remembered subscription after a
// reconnect. Failures are logged; the next reconnect tries again.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for topic, sub := range c.subscriptions {
		token := c.client.Subscribe(topic, sub.qos, c.wrapHandler(sub.handler))
		go func(topic string) {
			if !token.WaitTimeout(defaultPublishTimeout) || token.Error() != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Warn("MQTT resubscribe failed", "topic", topic, "error", token.Error())
				}
			}
		}(topic)
	}
}

// SubscriptionCount returns the number of remembered subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether topic (exact string) is subscribed.
func (c *Client) HasSubscription(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}
