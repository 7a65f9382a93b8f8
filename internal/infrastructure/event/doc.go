// Package event defines Record, the serialised form of a façade event.
//
// Drivers that ship events off-process (MQTT, the SQLite journal, the
// WebSocket live tail) all encode the same JSON shape:
//
//	{
//	  "id": "6f1c...",
//	  "instance": "0b7e...",
//	  "kind": "message",
//	  "level": "warning",
//	  "glyph": "⚠️",
//	  "text": "disk almost full",
//	  "file": "server.go",
//	  "function": "(*Server).run",
//	  "line": 42,
//	  "timestamp": "2026-01-01T12:00:00Z"
//	}
//
// Metadata and store records carry a "metadata" object instead of "text".
// Metadata values keep their JSON type where one exists; blobs and other
// opaque values are rendered to text.
package event
