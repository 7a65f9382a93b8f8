package bonsai

import (
	"fmt"
	"reflect"
)

// Driver is a log sink.
//
// Implementations translate events into a concrete output mechanism. None
// of the methods return errors: a driver owns its failures and must not let
// them escape, so that one broken sink never stops delivery to the others.
// Drivers that perform blocking I/O should hand events to an internal
// buffer rather than block the caller.
//
// Drivers are deduplicated by identity. Register the same pointer twice and
// it is kept once; register two distinct pointers to identical values and
// both are kept.
type Driver interface {
	// LogMessage emits a free-text event.
	LogMessage(level Level, text string, origin Origin)

	// LogMetadata emits a structured event.
	LogMetadata(level Level, metadata Metadata, origin Origin)

	// Store absorbs a key/value payload. What that means is up to the
	// driver: cache it, forward it, or ignore it.
	Store(metadata Metadata)
}

// Named is implemented by drivers that want a readable name in listings.
type Named interface {
	Name() string
}

// DriverName returns the driver's Name if it has one, otherwise its
// dynamic type.
func DriverName(d Driver) string {
	if n, ok := d.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", d)
}

// Funcs adapts plain functions to the Driver interface.
// Nil hooks are no-ops. Use a pointer (&Funcs{...}) so that registration
// identity is well defined.
type Funcs struct {
	Message  func(level Level, text string, origin Origin)
	Metadata func(level Level, metadata Metadata, origin Origin)
	StoreFn  func(metadata Metadata)
}

// LogMessage implements Driver.
func (f *Funcs) LogMessage(level Level, text string, origin Origin) {
	if f.Message != nil {
		f.Message(level, text, origin)
	}
}

// LogMetadata implements Driver.
func (f *Funcs) LogMetadata(level Level, metadata Metadata, origin Origin) {
	if f.Metadata != nil {
		f.Metadata(level, metadata, origin)
	}
}

// Store implements Driver.
func (f *Funcs) Store(metadata Metadata) {
	if f.StoreFn != nil {
		f.StoreFn(metadata)
	}
}

// sameDriver reports whether a and b are the same driver instance.
//
// Reference kinds compare by address. Comparable values compare with ==,
// which is the only identity a value has. Values that cannot be compared,
// funcs included, are never considered the same.
func sameDriver(a, b Driver) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	default:
		if !ta.Comparable() {
			return false
		}
		defer func() {
			// Structs holding interface fields with uncomparable
			// dynamic values still panic on ==.
			_ = recover()
		}()
		return a == b
	}
}
