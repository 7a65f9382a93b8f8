package bonsai

import "fmt"

// Default levels for the convenience entry points. Errors default louder
// than plain messages.
const (
	DefaultMessageLevel  = Verbose
	DefaultMetadataLevel = Verbose
	DefaultErrorLevel    = Warning
)

// Diagnostic is implemented by errors that describe themselves differently
// in logs than in their Error text.
type Diagnostic interface {
	Diagnostic() string
}

// Describe returns the text logged for err.
// It prefers Diagnostic over Error, and returns "" for a nil error.
//
// Describe never panics. A typed nil error whose method dereferences its
// receiver describes as "*T(<nil>)"; any other panicking method as
// "T(<panic>)".
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if d, ok := err.(Diagnostic); ok {
		return safeText(err, func() string { return d.Diagnostic() })
	}
	return safeText(err, func() string { return err.Error() })
}

// Message is a string that can log itself.
//
//	bonsai.Message("cache warmed").Log(logger)
//	bonsai.Message("cache miss").Log(logger, bonsai.Debug)
type Message string

// Log sends m through l at the given level (Verbose when omitted), tagged
// with the caller's origin.
func (m Message) Log(l *Logger, level ...Level) {
	if l == nil {
		return
	}
	l.Log(pick(level, DefaultMessageLevel), string(m), Caller(1))
}

// Log sends m through l as a structured event at the given level (Verbose
// when omitted), tagged with the caller's origin.
func (m Metadata) Log(l *Logger, level ...Level) {
	if l == nil {
		return
	}
	l.LogMetadata(pick(level, DefaultMetadataLevel), m, Caller(1))
}

// Store hands m to every driver registered with l.
func (m Metadata) Store(l *Logger) {
	if l == nil {
		return
	}
	l.Store(m)
}

// LogErr logs err through l at the given level (Warning when omitted),
// tagged with the caller's origin. Nil errors are ignored.
func LogErr(l *Logger, err error, level ...Level) {
	if l == nil {
		return
	}
	l.LogError(pick(level, DefaultErrorLevel), err, Caller(1))
}

// Verbose logs text at Verbose.
func (l *Logger) Verbose(text string) { l.Log(Verbose, text, Caller(1)) }

// Debug logs text at Debug.
func (l *Logger) Debug(text string) { l.Log(Debug, text, Caller(1)) }

// Warning logs text at Warning.
func (l *Logger) Warning(text string) { l.Log(Warning, text, Caller(1)) }

// Error logs text at Error.
func (l *Logger) Error(text string) { l.Log(Error, text, Caller(1)) }

// Verbosef formats according to a format specifier and logs at Verbose.
func (l *Logger) Verbosef(format string, args ...any) {
	l.logf(Verbose, format, args...)
}

// Debugf formats according to a format specifier and logs at Debug.
func (l *Logger) Debugf(format string, args ...any) {
	l.logf(Debug, format, args...)
}

// Warningf formats according to a format specifier and logs at Warning.
func (l *Logger) Warningf(format string, args ...any) {
	l.logf(Warning, format, args...)
}

// Errorf formats according to a format specifier and logs at Error.
func (l *Logger) Errorf(format string, args ...any) {
	l.logf(Error, format, args...)
}

// logf skips formatting entirely when the level is filtered out.
func (l *Logger) logf(level Level, format string, args ...any) {
	if !l.ShouldLog(level) {
		return
	}
	l.Log(level, fmt.Sprintf(format, args...), Caller(2))
}

func pick(levels []Level, fallback Level) Level {
	if len(levels) > 0 {
		return levels[0]
	}
	return fallback
}
