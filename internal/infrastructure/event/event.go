package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

// Kind says which façade path produced a Record.
type Kind string

// Record kinds.
const (
	KindMessage  Kind = "message"
	KindMetadata Kind = "metadata"
	KindStore    Kind = "store"
)

// Record is the wire form of a façade event, shared by every driver that
// serialises events (MQTT, SQLite, WebSocket tail).
//
// Store records carry no level and no origin.
type Record struct {
	ID        string         `json:"id"`
	Instance  string         `json:"instance,omitempty"`
	Kind      Kind           `json:"kind"`
	Level     string         `json:"level,omitempty"`
	Glyph     string         `json:"glyph,omitempty"`
	Text      string         `json:"text,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	File      string         `json:"file,omitempty"`
	Function  string         `json:"function,omitempty"`
	Line      int            `json:"line,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Message builds a record for a free-text event.
func Message(level bonsai.Level, text string, origin bonsai.Origin) Record {
	r := base(KindMessage)
	r.setLevel(level)
	r.setOrigin(origin)
	r.Text = text
	return r
}

// FromMetadata builds a record for a structured event.
func FromMetadata(level bonsai.Level, metadata bonsai.Metadata, origin bonsai.Origin) Record {
	r := base(KindMetadata)
	r.setLevel(level)
	r.setOrigin(origin)
	r.Metadata = JSONMap(metadata)
	return r
}

// Store builds a record for a store payload.
func Store(metadata bonsai.Metadata) Record {
	r := base(KindStore)
	r.Metadata = JSONMap(metadata)
	return r
}

// Stamp returns r tagged with the given instance id.
func (r Record) Stamp(instance string) Record {
	r.Instance = instance
	return r
}

// MarshalPayload encodes r as JSON.
func (r Record) MarshalPayload() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding %s record: %w", r.Kind, err)
	}
	return data, nil
}

func base(kind Kind) Record {
	return Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Timestamp: time.Now().UTC(),
	}
}

func (r *Record) setLevel(level bonsai.Level) {
	r.Level = level.String()
	r.Glyph = level.Glyph()
}

func (r *Record) setOrigin(origin bonsai.Origin) {
	r.File = origin.FileName()
	r.Function = origin.FunctionName()
	r.Line = origin.Line
}

// JSONMap converts metadata into a value encoding/json can always encode.
// Keys are rendered to text; values go through JSONValue. A value that
// refers back to metadata encodes as bonsai.CycleMarker.
func JSONMap(metadata bonsai.Metadata) map[string]any {
	if metadata == nil {
		return nil
	}
	c := jsonConverter{path: make(map[bonsai.Ref]struct{})}
	if ref, ok := bonsai.RefOf(reflect.ValueOf(metadata)); ok {
		c.path[ref] = struct{}{}
	}
	out := make(map[string]any, len(metadata))
	for _, p := range metadata.Pairs() {
		out[p.KeyText] = c.value(p.Value, 1)
	}
	return out
}

// JSONValue keeps scalars typed, converts maps and lists recursively and
// renders anything else (blobs, structs, pointers) with bonsai.Render.
// Self-references become bonsai.CycleMarker and nesting past
// bonsai.MaxRenderDepth becomes bonsai.DepthMarker.
func JSONValue(v any) any {
	c := jsonConverter{path: make(map[bonsai.Ref]struct{})}
	return c.value(v, 0)
}

type jsonConverter struct {
	path map[bonsai.Ref]struct{}
}

func (c jsonConverter) value(v any, depth int) any {
	kind := bonsai.KindOf(v)
	switch kind {
	case bonsai.KindNil:
		return nil
	case bonsai.KindString, bonsai.KindNumber, bonsai.KindBool:
		return v
	case bonsai.KindMap, bonsai.KindList:
	default:
		return bonsai.Render(v)
	}

	if depth >= bonsai.MaxRenderDepth {
		return bonsai.DepthMarker
	}
	rv := reflect.ValueOf(v)
	if ref, ok := bonsai.RefOf(rv); ok {
		if _, seen := c.path[ref]; seen {
			return bonsai.CycleMarker
		}
		c.path[ref] = struct{}{}
		defer delete(c.path, ref)
	}

	if kind == bonsai.KindMap {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[bonsai.Render(iter.Key().Interface())] = c.value(iter.Value().Interface(), depth+1)
		}
		return out
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = c.value(rv.Index(i).Interface(), depth+1)
	}
	return out
}
