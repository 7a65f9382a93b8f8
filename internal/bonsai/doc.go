// Package bonsai is a pluggable logging façade.
//
// A Logger accepts log events (plain messages, structured metadata and
// errors) and fans them out to every registered Driver, in registration
// order, subject to a severity filter.
//
// # Filtering
//
// Two knobs control admission:
//
//   - Minimum level: events at or above it are admitted (default Verbose).
//   - Debug focus: when enabled, only Debug events are admitted and the
//     minimum level is ignored. Useful while chasing a bug, to silence
//     everything except the temporary debug lines.
//
// Store payloads are a side channel and are never filtered.
//
// # Drivers
//
// A driver implements LogMessage, LogMetadata and Store. This package
// ships two reference drivers:
//
//   - Console: human-readable lines for development, switchable at runtime
//   - SystemLog: the host syslog, with level-to-severity mapping
//
// Drivers for MQTT, InfluxDB, SQLite, slog and a WebSocket live tail live in
// the infrastructure and api packages.
//
// # Usage
//
//	logger := bonsai.New()
//	logger.Register(bonsai.NewConsole(os.Stdout))
//
//	logger.Warning("disk almost full")
//	bonsai.Message("cache warmed").Log(logger)
//	bonsai.Metadata{"user": "henry", "age": 6}.Log(logger, bonsai.Debug)
//	bonsai.LogErr(logger, err) // Warning by default
//	bonsai.Metadata{"session": id}.Store(logger)
//
// Logging never fails and never panics from the caller's point of view.
package bonsai
