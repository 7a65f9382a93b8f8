package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

// FilterControlHandler returns a handler that applies filter changes
// received on the control topic to logger.
//
// Payload (both fields optional):
//
//	{"minimum_level": "warning", "debug_focus": true}
//
// Returns:
//   - MessageHandler: errors wrap ErrInvalidControl and are logged by the client
func FilterControlHandler(logger *bonsai.Logger) MessageHandler {
	return func(_ string, payload []byte) error {
		var patch bonsai.FilterPatch
		if err := json.Unmarshal(payload, &patch); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidControl, err)
		}
		logger.PatchFilter(patch)
		return nil
	}
}

// SubscribeFilterControl subscribes logger to the client's filter control
// topic, so operators can switch debug focus or the minimum level without
// a restart.
func SubscribeFilterControl(c *Client, logger *bonsai.Logger) error {
	return c.Subscribe(c.Topics().FilterControl(), c.QoS(), FilterControlHandler(logger))
}
