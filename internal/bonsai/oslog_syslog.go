//go:build !windows && !plan9 && !js && !wasip1

package bonsai

import (
	"fmt"
	"log/syslog"
)

// NewSystemLog connects to the local syslog daemon, tagging entries with
// subsystem.
//
// Returns:
//   - *SystemLog: driver ready to register
//   - error: ErrSyslogUnavailable wrapping the dial failure
func NewSystemLog(subsystem, category string) (*SystemLog, error) {
	w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, subsystem)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyslogUnavailable, err)
	}
	return NewSystemLogWriter(w, subsystem, category), nil
}
