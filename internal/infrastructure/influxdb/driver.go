package influxdb

import (
	"reflect"
	"time"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

// Measurement names written by Driver.
const (
	MeasurementLogEvents = "log_events"
	MeasurementStore     = "store"
)

// PointWriter is the part of Client the driver needs.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time)
}

// Driver records façade events as InfluxDB points.
//
// Every admitted event becomes one log_events point tagged with level,
// kind, file and function, carrying count=1 and the line number, so event
// rates per level and per call site can be graphed. Message text is not
// written; it would make every point a distinct series value with no
// aggregate use.
//
// Store payloads become one store point: numeric and boolean values are
// fields, strings are tags, and anything else is rendered into a string
// field.
//
// Thread Safety:
//   - Safe for concurrent use. The client's write API is non-blocking.
type Driver struct {
	w        PointWriter
	instance string
	now      func() time.Time
}

// NewDriver creates a driver writing through w. instance, when set, is
// added as a tag on every point.
func NewDriver(w PointWriter, instance string) *Driver {
	return &Driver{w: w, instance: instance, now: time.Now}
}

// Name implements bonsai.Named.
func (d *Driver) Name() string { return "influxdb" }

// Failed returns the writer's failed batch count when it keeps one
// (a *Client does), otherwise 0.
func (d *Driver) Failed() uint64 {
	if fc, ok := d.w.(interface{ Failed() uint64 }); ok {
		return fc.Failed()
	}
	return 0
}

// LogMessage implements bonsai.Driver.
func (d *Driver) LogMessage(level bonsai.Level, _ string, origin bonsai.Origin) {
	d.writeEvent("message", level, origin)
}

// LogMetadata implements bonsai.Driver.
func (d *Driver) LogMetadata(level bonsai.Level, _ bonsai.Metadata, origin bonsai.Origin) {
	d.writeEvent("metadata", level, origin)
}

// Store implements bonsai.Driver.
func (d *Driver) Store(metadata bonsai.Metadata) {
	tags := d.baseTags()
	fields := make(map[string]interface{}, len(metadata))

	for _, p := range metadata.Pairs() {
		switch bonsai.KindOf(p.Value) {
		case bonsai.KindNil:
		case bonsai.KindString:
			tags[p.KeyText] = bonsai.Render(p.Value)
		case bonsai.KindNumber:
			fields[p.KeyText] = numericField(p.Value)
		case bonsai.KindBool:
			fields[p.KeyText] = p.Value
		default:
			fields[p.KeyText] = bonsai.Render(p.Value)
		}
	}

	// A point needs at least one field.
	if len(fields) == 0 {
		fields["count"] = int64(1)
	}

	d.w.WritePointWithTime(MeasurementStore, tags, fields, d.now())
}

func (d *Driver) writeEvent(kind string, level bonsai.Level, origin bonsai.Origin) {
	tags := d.baseTags()
	tags["level"] = level.String()
	tags["kind"] = kind
	tags["file"] = origin.FileName()
	tags["function"] = origin.FunctionName()

	fields := map[string]interface{}{
		"count": int64(1),
		"line":  int64(origin.Line),
	}

	d.w.WritePointWithTime(MeasurementLogEvents, tags, fields, d.now())
}

func (d *Driver) baseTags() map[string]string {
	tags := make(map[string]string, 6)
	if d.instance != "" {
		tags["instance"] = d.instance
	}
	return tags
}

// numericField widens any Go number to the int64, uint64 or float64 the
// line protocol encoder understands.
func numericField(v any) interface{} {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return v
	}
}
