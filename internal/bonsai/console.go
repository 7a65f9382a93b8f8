package bonsai

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// consolePrefix starts every console line.
const consolePrefix = "[LOGGER]"

// metadataIndent prefixes each key/value line of a metadata block.
const metadataIndent = "    "

// Console is a development driver that prints events as text.
//
// Lines look like:
//
//	[LOGGER] ⚠️ [server.go:42] disk almost full
//
// Metadata prints a header line followed by one indented "key: value" line
// per entry, keys ordered. Store payloads are ignored.
//
// Output can be switched off at runtime with SetEnabled, which is how
// release builds silence it.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
	colour  bool
}

// NewConsole creates a console driver writing to w (os.Stdout when nil).
// Colour is enabled when w is a terminal.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{
		out:     w,
		enabled: true,
		colour:  isTerminal(w),
	}
}

// Name implements Named.
func (c *Console) Name() string { return "console" }

// SetEnabled switches output on or off.
func (c *Console) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
}

// Enabled reports whether output is on.
func (c *Console) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetColour forces colour on or off.
func (c *Console) SetColour(enabled bool) {
	c.mu.Lock()
	c.colour = enabled
	c.mu.Unlock()
}

// LogMessage implements Driver.
func (c *Console) LogMessage(level Level, text string, origin Origin) {
	c.write(c.header(level, origin) + " " + text + "\n")
}

// LogMetadata implements Driver.
func (c *Console) LogMetadata(level Level, metadata Metadata, origin Origin) {
	var b strings.Builder
	b.WriteString(c.header(level, origin))
	b.WriteByte('\n')
	for _, p := range metadata.Pairs() {
		b.WriteString(metadataIndent)
		b.WriteString(p.KeyText)
		b.WriteString(": ")
		b.WriteString(Render(p.Value))
		b.WriteByte('\n')
	}
	c.write(b.String())
}

// Store implements Driver. The console has nothing to do with stored
// payloads.
func (c *Console) Store(Metadata) {}

// header renders "[LOGGER] <glyph> [<file>:<line>]".
func (c *Console) header(level Level, origin Origin) string {
	h := consolePrefix + " " + level.Glyph() + " [" + origin.FileName() + ":" + strconv.Itoa(origin.Line) + "]"

	c.mu.Lock()
	colour := c.colour
	c.mu.Unlock()
	if !colour {
		return h
	}
	return levelColour(level).Sprint(h)
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	_, _ = io.WriteString(c.out, s)
}

// levelColour picks the terminal colour for a level.
func levelColour(level Level) *color.Color {
	var col *color.Color
	switch level {
	case Debug:
		col = color.New(color.FgCyan)
	case Warning:
		col = color.New(color.FgYellow)
	case Error:
		col = color.New(color.FgRed, color.Bold)
	default:
		col = color.New(color.FgHiBlack)
	}
	// Colour is decided per writer, not by the library's stdout check.
	col.EnableColor()
	return col
}

// isTerminal reports whether w is a file attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
