package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/valyala/fastjson"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

// LogResponse is the body of POST /api/v1/log.
type LogResponse struct {
	Level    bonsai.Level `json:"level"`
	Admitted bool         `json:"admitted"`
}

// StoreResponse is the body of POST /api/v1/store.
type StoreResponse struct {
	Keys int `json:"keys"`
}

// parsers is shared by the ingest handlers. A parsed Value is only valid
// until its parser is returned, so handlers convert before Put.
var parsers fastjson.ParserPool

// handleLog sends a remote event through the façade.
//
// Body:
//
//	{"level": "warning", "message": "disk almost full",
//	 "metadata": {"free_mb": 12}, "file": "disk.go", "function": "main.check", "line": 7}
//
// At least one of message and metadata is required. Level defaults to
// verbose. The response reports whether the filter admitted the event.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	p := parsers.Get()
	defer parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if v.Type() != fastjson.TypeObject {
		writeBadRequest(w, "body must be a JSON object")
		return
	}

	level := bonsai.DefaultMessageLevel
	if lv := v.Get("level"); lv != nil {
		name, err := lv.StringBytes()
		if err != nil {
			writeBadRequest(w, "level must be a string")
			return
		}
		if level, err = bonsai.ParseLevel(string(name)); err != nil {
			writeValidationError(w, err.Error())
			return
		}
	}

	var (
		text     string
		hasText  bool
		metadata bonsai.Metadata
	)
	if mv := v.Get("message"); mv != nil {
		b, err := mv.StringBytes()
		if err != nil {
			writeBadRequest(w, "message must be a string")
			return
		}
		text, hasText = string(b), true
	}
	if mv := v.Get("metadata"); mv != nil {
		if metadata, err = metadataFromJSON(mv); err != nil {
			writeBadRequest(w, err.Error())
			return
		}
	}
	if !hasText && metadata == nil {
		writeValidationError(w, "message or metadata is required")
		return
	}

	origin := bonsai.Origin{
		File:     string(v.GetStringBytes("file")),
		Function: string(v.GetStringBytes("function")),
		Line:     v.GetInt("line"),
	}

	var textPtr *string
	if hasText {
		textPtr = &text
	}
	admitted := s.bonsai.Emit(level, textPtr, metadata, origin)

	writeJSON(w, http.StatusAccepted, LogResponse{Level: level, Admitted: admitted})
}

// handleStore hands a JSON object to every driver's Store.
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	p := parsers.Get()
	defer parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	metadata, err := metadataFromJSON(v)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if len(metadata) == 0 {
		writeValidationError(w, "store payload must not be empty")
		return
	}

	s.bonsai.Store(metadata)
	writeJSON(w, http.StatusAccepted, StoreResponse{Keys: len(metadata)})
}

// readBody reads the (size-limited) request body, answering the request
// itself on failure.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return nil, false
		}
		writeBadRequest(w, "reading body: "+err.Error())
		return nil, false
	}
	return body, true
}

// metadataFromJSON converts a JSON object into Metadata with string keys.
func metadataFromJSON(v *fastjson.Value) (bonsai.Metadata, error) {
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("metadata must be a JSON object")
	}
	md := make(bonsai.Metadata, obj.Len())
	obj.Visit(func(key []byte, val *fastjson.Value) {
		md[string(key)] = valueFromJSON(val)
	})
	return md, nil
}

// valueFromJSON keeps value kinds: integers stay int64, other numbers are
// float64, objects become map[string]any and arrays []any.
func valueFromJSON(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		if n, err := v.Int64(); err == nil {
			return n
		}
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeArray:
		items := v.GetArray()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, valueFromJSON(item))
		}
		return out
	case fastjson.TypeObject:
		obj := v.GetObject()
		out := make(map[string]any, obj.Len())
		obj.Visit(func(key []byte, val *fastjson.Value) {
			out[string(key)] = valueFromJSON(val)
		})
		return out
	default:
		return nil
	}
}
