package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

func TestMessage(t *testing.T) {
	origin := bonsai.Origin{File: "/srv/app/server.go", Function: "main.serve", Line: 42}

	r := Message(bonsai.Warning, "disk almost full", origin)

	if r.Kind != KindMessage {
		t.Errorf("Kind = %q, want %q", r.Kind, KindMessage)
	}
	if r.Level != "warning" || r.Glyph != "⚠️" {
		t.Errorf("Level/Glyph = %q/%q", r.Level, r.Glyph)
	}
	if r.File != "server.go" || r.Function != "serve" || r.Line != 42 {
		t.Errorf("origin = %s/%s/%d", r.File, r.Function, r.Line)
	}
	if r.ID == "" {
		t.Error("ID is empty")
	}
	if r.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestRecord_UniqueIDs(t *testing.T) {
	a := Store(bonsai.Metadata{"k": "v"})
	b := Store(bonsai.Metadata{"k": "v"})
	if a.ID == b.ID {
		t.Errorf("IDs collide: %s", a.ID)
	}
}

func TestStore_HasNoLevel(t *testing.T) {
	r := Store(bonsai.Metadata{"Hello": "World"})

	if r.Kind != KindStore {
		t.Errorf("Kind = %q, want store", r.Kind)
	}
	if r.Level != "" || r.File != "" {
		t.Errorf("store record has level/origin: %+v", r)
	}
	if r.Metadata["Hello"] != "World" {
		t.Errorf("Metadata = %v", r.Metadata)
	}
}

func TestMarshalPayload(t *testing.T) {
	r := FromMetadata(bonsai.Debug, bonsai.Metadata{
		"name":    "Henry",
		"age":     6,
		1:         "The first item",
		"friends": []string{"Mr. Orange", "Mr. Blonde"},
		"raw":     []byte("hi"),
		"nested":  map[string]any{"ok": true},
		"err":     errors.New("boom"),
	}, bonsai.Origin{}).Stamp("instance-1")

	data, err := r.MarshalPayload()
	if err != nil {
		t.Fatalf("MarshalPayload() error = %v", err)
	}

	var decoded struct {
		Instance string         `json:"instance"`
		Kind     string         `json:"kind"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if decoded.Instance != "instance-1" {
		t.Errorf("instance = %q", decoded.Instance)
	}
	if decoded.Kind != "metadata" {
		t.Errorf("kind = %q", decoded.Kind)
	}

	m := decoded.Metadata
	tests := []struct {
		key  string
		want any
	}{
		{"name", "Henry"},
		{"age", float64(6)},
		{"1", "The first item"},
		{"raw", "blob(aGk=)"},
		{"err", "boom"},
	}
	for _, tt := range tests {
		if m[tt.key] != tt.want {
			t.Errorf("metadata[%q] = %v, want %v", tt.key, m[tt.key], tt.want)
		}
	}

	friends, ok := m["friends"].([]any)
	if !ok || len(friends) != 2 || friends[0] != "Mr. Orange" {
		t.Errorf("metadata[friends] = %v", m["friends"])
	}
	nested, ok := m["nested"].(map[string]any)
	if !ok || nested["ok"] != true {
		t.Errorf("metadata[nested] = %v", m["nested"])
	}
}

func TestJSONMap_Nil(t *testing.T) {
	if JSONMap(nil) != nil {
		t.Error("JSONMap(nil) != nil")
	}
}

func TestJSONMap_Cycles(t *testing.T) {
	m := bonsai.Metadata{"name": "loop"}
	m["self"] = m
	inner := map[string]any{}
	inner["back"] = inner
	m["inner"] = inner

	out := JSONMap(m)

	if out["self"] != bonsai.CycleMarker {
		t.Errorf("self = %v, want %q", out["self"], bonsai.CycleMarker)
	}
	nested, ok := out["inner"].(map[string]any)
	if !ok || nested["back"] != bonsai.CycleMarker {
		t.Errorf("inner = %v, want back: %q", out["inner"], bonsai.CycleMarker)
	}
	if _, err := json.Marshal(out); err != nil {
		t.Errorf("json.Marshal() error = %v", err)
	}

	r := FromMetadata(bonsai.Debug, m, bonsai.Origin{})
	if _, err := r.MarshalPayload(); err != nil {
		t.Errorf("MarshalPayload() error = %v", err)
	}
}

func TestJSONValue_Limits(t *testing.T) {
	list := make([]any, 2)
	list[0] = 1
	list[1] = list

	got, ok := JSONValue(list).([]any)
	if !ok || len(got) != 2 || got[1] != bonsai.CycleMarker {
		t.Errorf("JSONValue(self list) = %v", got)
	}

	var deep any = "leaf"
	for i := 0; i < bonsai.MaxRenderDepth+4; i++ {
		deep = []any{deep}
	}
	v := JSONValue(deep)
	for i := 0; i < bonsai.MaxRenderDepth; i++ {
		l, ok := v.([]any)
		if !ok || len(l) != 1 {
			t.Fatalf("level %d = %v, want a one-element list", i, v)
		}
		v = l[0]
	}
	if v != bonsai.DepthMarker {
		t.Errorf("past the limit = %v, want %q", v, bonsai.DepthMarker)
	}
}
