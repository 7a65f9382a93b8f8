package influxdb

import "errors"

// Sentinel errors returned by Connect and HealthCheck. Asynchronous write
// failures never surface as errors: they are counted (see Client.Failed)
// and handed to the SetOnError callback.
var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled")

	// ErrConnectionFailed wraps the ping failure seen by Connect.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned once the client has been closed.
	ErrNotConnected = errors.New("influxdb: not connected")
)
