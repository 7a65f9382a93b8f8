// Package influxdb provides InfluxDB connectivity for Bonsai.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched point writing and health monitoring, and provides a
// bonsai driver that turns log events into time-series points.
//
// # Purpose
//
// Log volume is a signal in itself. The driver records:
//   - log_events: one point per admitted event, tagged by level, kind,
//     file and function, so rates per call site can be graphed
//   - store: one point per store payload, numbers and booleans as fields
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	facade.Register(influxdb.NewDriver(client, instanceID))
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
