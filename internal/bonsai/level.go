package bonsai

import (
	"fmt"
	"strings"
)

// Level is the severity of a log event.
//
// Levels are totally ordered by their underlying value; the threshold check
// in Logger.ShouldLog compares them directly.
type Level int

// Severity levels, lowest first.
const (
	Verbose Level = iota
	Debug
	Warning
	Error
)

// levelNames maps each level to its lowercase name.
var levelNames = [...]string{
	Verbose: "verbose",
	Debug:   "debug",
	Warning: "warning",
	Error:   "error",
}

// levelGlyphs holds the display glyph for each level.
// Debug logs are meant to be short-lived: remove them or demote them to
// verbose once the investigation is over.
var levelGlyphs = [...]string{
	Verbose: "🤫",
	Debug:   "👷🏻‍♀️",
	Warning: "⚠️",
	Error:   "🔥",
}

// unknownGlyph is rendered for values outside the enumeration.
const unknownGlyph = "❔"

// Levels returns every level in ascending order.
func Levels() []Level {
	return []Level{Verbose, Debug, Warning, Error}
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= Verbose && l <= Error
}

// String returns the lowercase name of the level.
func (l Level) String() string {
	if !l.Valid() {
		return "unknown"
	}
	return levelNames[l]
}

// Glyph returns the emoji used when rendering the level for humans.
// It has no bearing on filtering.
func (l Level) Glyph() string {
	if !l.Valid() {
		return unknownGlyph
	}
	return levelGlyphs[l]
}

// ParseLevel converts a level name to a Level.
//
// Supported names: verbose, debug, warning (or warn), error.
// Matching is case-insensitive and ignores surrounding whitespace.
//
// Returns:
//   - Level: the parsed level, or Verbose when the name is unknown
//   - error: ErrUnknownLevel wrapped with the offending name
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "verbose":
		return Verbose, nil
	case "debug":
		return Debug, nil
	case "warning", "warn":
		return Warning, nil
	case "error":
		return Error, nil
	default:
		return Verbose, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
