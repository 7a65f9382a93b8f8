package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/bonsai/internal/infrastructure/config"
)

// Logger is the process's own diagnostic log: startup, driver faults,
// broker and database trouble. It is separate from the façade it
// diagnoses, so a misbehaving driver can still be reported.
//
// It satisfies bonsai.DiagnosticLogger and the SetLogger hooks of the
// infrastructure packages.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Loggers derived with With or Component share the level of their
//     parent, so SetLevel affects all of them.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New builds a Logger from the logging section of the configuration,
// writing to stdout or stderr (the default).
//
// Every record carries service=bonsai and version.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		output = os.Stdout
	}
	return NewWithWriter(cfg, version, output)
}

// NewWithWriter is New with an explicit destination, ignoring cfg.Output.
func NewWithWriter(cfg config.LoggingConfig, version string, output io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameVerbose,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "bonsai"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler), level: level}
}

// parseLevel maps a configured level name to slog. Unknown names fall
// back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "verbose":
		return LevelVerbose
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// renameVerbose prints LevelVerbose as VERBOSE instead of DEBUG-4.
func renameVerbose(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelVerbose {
		a.Value = slog.StringValue("VERBOSE")
	}
	return a
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// SetLevel changes the minimum level at runtime. name uses the same
// vocabulary as logging.level in the configuration.
func (l *Logger) SetLevel(name string) {
	l.level.Set(parseLevel(name))
}

// With returns a Logger with extra default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// Component tags every record with component=name.
//
//	mqttLog := log.Component("mqtt")
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is the logger used before configuration is loaded: text on
// stderr at info.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "text", Output: "stderr"}, "dev")
}
