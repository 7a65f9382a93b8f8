package logging

import (
	"context"
	"log/slog"

	"github.com/nerrad567/bonsai/internal/bonsai"
)

// LevelVerbose sits below slog.LevelDebug so verbose events can be
// filtered separately by the handler.
const LevelVerbose = slog.LevelDebug - 4

// Driver forwards façade events into an slog.Logger.
//
// Messages become records at the mapped level with file, function and line
// attributes. Metadata entries become attributes of a "metadata" record.
// Store payloads are logged at debug level under the "store" group.
type Driver struct {
	logger *slog.Logger
}

// NewDriver creates a driver writing to logger.
func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{logger: logger}
}

// Name implements bonsai.Named.
func (d *Driver) Name() string { return "slog" }

// LogMessage implements bonsai.Driver.
func (d *Driver) LogMessage(level bonsai.Level, text string, origin bonsai.Origin) {
	d.logger.LogAttrs(context.Background(), SlogLevel(level), text, originAttrs(origin)...)
}

// LogMetadata implements bonsai.Driver.
func (d *Driver) LogMetadata(level bonsai.Level, metadata bonsai.Metadata, origin bonsai.Origin) {
	attrs := originAttrs(origin)
	attrs = append(attrs, metadataAttrs(metadata)...)
	d.logger.LogAttrs(context.Background(), SlogLevel(level), "metadata", attrs...)
}

// Store implements bonsai.Driver.
func (d *Driver) Store(metadata bonsai.Metadata) {
	attrs := metadataAttrs(metadata)
	group := make([]any, len(attrs))
	for i, a := range attrs {
		group[i] = a
	}
	d.logger.LogAttrs(context.Background(), slog.LevelDebug, "store", slog.Group("store", group...))
}

// SlogLevel maps a façade level onto an slog level.
func SlogLevel(level bonsai.Level) slog.Level {
	switch level {
	case bonsai.Verbose:
		return LevelVerbose
	case bonsai.Debug:
		return slog.LevelDebug
	case bonsai.Warning:
		return slog.LevelWarn
	case bonsai.Error:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func originAttrs(origin bonsai.Origin) []slog.Attr {
	return []slog.Attr{
		slog.String("file", origin.FileName()),
		slog.String("function", origin.FunctionName()),
		slog.Int("line", origin.Line),
	}
}

// metadataAttrs keeps scalar values typed and renders everything else.
func metadataAttrs(metadata bonsai.Metadata) []slog.Attr {
	pairs := metadata.Pairs()
	attrs := make([]slog.Attr, 0, len(pairs))
	for _, p := range pairs {
		switch bonsai.KindOf(p.Value) {
		case bonsai.KindNumber, bonsai.KindBool, bonsai.KindString:
			attrs = append(attrs, slog.Any(p.KeyText, p.Value))
		default:
			attrs = append(attrs, slog.String(p.KeyText, bonsai.Render(p.Value)))
		}
	}
	return attrs
}
