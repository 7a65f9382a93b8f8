//go:build windows || plan9 || js || wasip1

package bonsai

// NewSystemLog always fails on platforms without syslog.
func NewSystemLog(subsystem, category string) (*SystemLog, error) {
	return nil, ErrSyslogUnavailable
}
