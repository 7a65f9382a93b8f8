// Package api implements the admin HTTP API and the WebSocket live tail.
//
// This package provides:
//   - Filter inspection and partial updates (minimum level, debug focus)
//   - A listing of registered drivers with their drop/failure counters
//   - Remote ingest: messages, metadata and store payloads sent through
//     the façade, so non-Go processes can share the same sinks
//   - Journal queries when the SQLite journal is enabled
//   - A WebSocket hub that is itself a driver and streams admitted events
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// There is no authentication. The server binds to 127.0.0.1 by default and
// is meant for local operators; put it behind a proxy before exposing it.
//
// # Live tail protocol
//
// Clients connect to /api/v1/tail and are subscribed to the "log" channel.
// They may send
//
//	{"type": "subscribe", "id": "1", "payload": {"channels": ["store"]}}
//
// to also receive store payloads. Every event arrives as
//
//	{"type": "event", "event_type": "log", "timestamp": "...", "payload": <event.Record>}
package api
