package mqtt

import "errors"

// Sentinel errors. Check them with errors.Is; most are wrapped with the
// topic or broker address.
var (
	ErrNotConnected      = errors.New("mqtt: not connected")
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS values above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	// ErrInvalidTopic rejects an empty topic.
	ErrInvalidTopic = errors.New("mqtt: empty topic")

	// ErrInvalidControl wraps a filter control payload that is not a
	// JSON filter patch.
	ErrInvalidControl = errors.New("mqtt: invalid filter control payload")
)
