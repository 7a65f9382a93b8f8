package mqtt

import (
	"strings"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

// DefaultTopicPrefix is used when Topics has no prefix.
const DefaultTopicPrefix = "bonsai"

// Topics provides builders for Bonsai MQTT topics under a configurable
// prefix. Using these helpers ensures consistent topic naming across the
// codebase.
//
//	topics := mqtt.Topics{Prefix: "site/logs"}
//	topics.Log(bonsai.Warning)
//	// Returns: "site/logs/log/warning"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.TrimSuffix(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// Log returns the topic events at level are published to.
//
// Example: bonsai/log/warning
func (t Topics) Log(level bonsai.Level) string {
	return t.prefix() + "/log/" + level.String()
}

// AllLogs returns a wildcard matching every level topic.
//
// Example: bonsai/log/+
func (t Topics) AllLogs() string {
	return t.prefix() + "/log/+"
}

// Store returns the topic store payloads are published to.
//
// Example: bonsai/store
func (t Topics) Store() string {
	return t.prefix() + "/store"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: bonsai/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// FilterControl returns the topic that accepts remote filter changes.
//
// Example: bonsai/control/filter
func (t Topics) FilterControl() string {
	return t.prefix() + "/control/filter"
}

// All returns a wildcard matching every Bonsai topic.
//
// Example: bonsai/#
func (t Topics) All() string {
	return t.prefix() + "/#"
}
