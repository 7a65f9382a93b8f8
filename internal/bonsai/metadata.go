package bonsai

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Metadata is a structured payload: arbitrary comparable keys mapped to
// arbitrary values.
//
// It is used both for structured log events and for Store payloads. The
// dispatcher never interprets it; drivers that need to branch on value
// shape should use KindOf.
type Metadata map[any]any

// Pair is a single rendered metadata entry.
type Pair struct {
	Key   any
	Value any

	// KeyText is the rendered form of Key, used for ordering.
	KeyText string
}

// Pairs returns the entries ordered by their rendered key.
//
// Map iteration order is random; drivers that print metadata use Pairs so
// their output is stable.
func (m Metadata) Pairs() []Pair {
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{Key: k, Value: v, KeyText: Render(k)})
	}
	sortPairs(pairs)
	return pairs
}

// StringMap renders every key and value to text.
func (m Metadata) StringMap() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[Render(k)] = Render(v)
	}
	return out
}

// Clone returns a shallow copy of m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String renders the metadata as "{k: v, ...}" with keys ordered.
func (m Metadata) String() string {
	return Render(m)
}

// Kind classifies a metadata value.
type Kind int

// Value kinds.
const (
	KindNil Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
	KindList
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "blob"
	}
}

// KindOf reports the shape of v.
//
// Byte slices and any type that is not a scalar, map or list are reported
// as KindBlob.
func KindOf(v any) Kind {
	if v == nil {
		return KindNil
	}
	if _, ok := v.([]byte); ok {
		return KindBlob
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Map:
		return KindMap
	case reflect.Slice, reflect.Array:
		return KindList
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return KindNil
		}
		return KindBlob
	default:
		return KindBlob
	}
}

// Markers written in place of values Render will not descend into.
const (
	CycleMarker = "<cycle>"
	DepthMarker = "<too deep>"
)

// MaxRenderDepth is how many nested maps and lists Render and the JSON
// encoders follow before writing DepthMarker.
const MaxRenderDepth = 32

// Render converts a metadata key or value to display text.
//
// Strings are returned verbatim, errors and fmt.Stringers use their own
// text, byte slices render as a base64 blob, maps render as "{k: v}" with
// ordered keys and lists as "[a, b]". Everything else falls back to fmt.
//
// Render never panics: a map or slice that contains itself renders as
// CycleMarker, nesting beyond MaxRenderDepth as DepthMarker, and an Error
// or String method that panics (a typed nil, say) as "T(<nil>)".
func Render(v any) string {
	r := renderer{path: make(map[Ref]struct{})}
	return r.render(v, 0)
}

// Ref identifies a map or slice by its backing storage, for cycle checks.
type Ref struct {
	ptr uintptr
	len int
}

// RefOf returns the identity of a map or non-empty slice. ok is false for
// values that cannot take part in a cycle.
func RefOf(rv reflect.Value) (Ref, bool) {
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return Ref{}, false
		}
		return Ref{ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return Ref{}, false
		}
		return Ref{ptr: rv.Pointer(), len: rv.Len()}, true
	default:
		return Ref{}, false
	}
}

// renderer tracks the maps and slices on the current path.
type renderer struct {
	path map[Ref]struct{}
}

func (r renderer) render(v any, depth int) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return t
	case []byte:
		return "blob(" + base64.StdEncoding.EncodeToString(t) + ")"
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case Metadata:
		return r.nested(reflect.ValueOf(t), depth)
	case error:
		return safeText(t, func() string { return t.Error() })
	case fmt.Stringer:
		return safeText(t, func() string { return t.String() })
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return r.nested(rv, depth)
	default:
		return fmt.Sprint(v)
	}
}

// nested renders a map or list, guarding against cycles and depth.
func (r renderer) nested(rv reflect.Value, depth int) string {
	if depth >= MaxRenderDepth {
		return DepthMarker
	}
	if ref, ok := RefOf(rv); ok {
		if _, seen := r.path[ref]; seen {
			return CycleMarker
		}
		r.path[ref] = struct{}{}
		defer delete(r.path, ref)
	}
	if rv.Kind() == reflect.Map {
		return r.renderMap(rv, depth+1)
	}
	return r.renderList(rv, depth+1)
}

func (r renderer) renderMap(rv reflect.Value, depth int) string {
	pairs := make([]Pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		pairs = append(pairs, Pair{Key: k, Value: iter.Value().Interface(), KeyText: r.render(k, depth)})
	}
	sortPairs(pairs)

	var b strings.Builder
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.KeyText)
		b.WriteString(": ")
		b.WriteString(r.render(p.Value, depth))
	}
	b.WriteByte('}')
	return b.String()
}

func (r renderer) renderList(rv reflect.Value, depth int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r.render(rv.Index(i).Interface(), depth))
	}
	b.WriteByte(']')
	return b.String()
}

// safeText calls text, turning a panic into "T(<nil>)" for nil receivers
// and "T(<panic>)" otherwise.
func safeText(v any, text func() string) (s string) {
	defer func() {
		if recover() != nil {
			s = fallbackText(v)
		}
	}()
	return text()
}

func fallbackText(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if rv.IsNil() {
			return fmt.Sprintf("%T(<nil>)", v)
		}
	}
	return fmt.Sprintf("%T(<panic>)", v)
}

// sortPairs orders by rendered key; keys that render identically (1 and
// "1") are ordered by type name so the result stays deterministic.
func sortPairs(pairs []Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].KeyText != pairs[j].KeyText {
			return pairs[i].KeyText < pairs[j].KeyText
		}
		return fmt.Sprintf("%T", pairs[i].Key) < fmt.Sprintf("%T", pairs[j].Key)
	})
}
