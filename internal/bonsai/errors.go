package bonsai

import "errors"

// Domain errors for the bonsai package.
//
// None of these are ever returned from the logging entry points; logging
// cannot fail from the caller's point of view. They surface only from
// construction and parsing helpers.
var (
	// ErrUnknownLevel is returned when a level name is not recognised.
	ErrUnknownLevel = errors.New("bonsai: unknown level")

	// ErrSyslogUnavailable is returned when the host has no syslog service
	// or the platform does not support one.
	ErrSyslogUnavailable = errors.New("bonsai: syslog unavailable")
)
