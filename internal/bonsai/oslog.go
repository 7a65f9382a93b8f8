package bonsai

import (
	"strconv"
	"strings"
	"sync"
)

// SyslogWriter is the subset of *syslog.Writer used by SystemLog, one
// method per native severity.
type SyslogWriter interface {
	Info(m string) error
	Debug(m string) error
	Err(m string) error
	Crit(m string) error
	Close() error
}

// SystemLog forwards events to the host's native log service.
//
// Levels map onto native severities as follows:
//
//	Verbose → info
//	Debug   → debug
//	Warning → err
//	Error   → crit
//
// Each event is flattened into one line carrying the category and the
// origin. Store payloads are ignored.
type SystemLog struct {
	subsystem string
	category  string

	mu sync.Mutex
	w  SyslogWriter
}

// NewSystemLogWriter creates a SystemLog on top of an existing writer.
func NewSystemLogWriter(w SyslogWriter, subsystem, category string) *SystemLog {
	return &SystemLog{
		subsystem: subsystem,
		category:  category,
		w:         w,
	}
}

// Name implements Named.
func (s *SystemLog) Name() string { return "syslog:" + s.subsystem }

// Subsystem returns the subsystem label, used as the syslog tag.
func (s *SystemLog) Subsystem() string { return s.subsystem }

// Category returns the category label.
func (s *SystemLog) Category() string { return s.category }

// LogMessage implements Driver.
func (s *SystemLog) LogMessage(level Level, text string, origin Origin) {
	s.emit(level, s.format(level, text, origin))
}

// LogMetadata implements Driver.
func (s *SystemLog) LogMetadata(level Level, metadata Metadata, origin Origin) {
	pairs := metadata.Pairs()
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.KeyText+"="+Render(p.Value))
	}
	s.emit(level, s.format(level, strings.Join(parts, " "), origin))
}

// Store implements Driver as a no-op.
func (s *SystemLog) Store(Metadata) {}

// Close releases the underlying writer.
func (s *SystemLog) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}

// format renders "[LOGGER] <category> <file>.<function>:<line> - <glyph> <text>".
func (s *SystemLog) format(level Level, text string, origin Origin) string {
	var b strings.Builder
	b.WriteString(consolePrefix)
	b.WriteByte(' ')
	if s.category != "" {
		b.WriteString(s.category)
		b.WriteByte(' ')
	}
	b.WriteString(origin.FileName())
	b.WriteByte('.')
	b.WriteString(origin.FunctionName())
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(origin.Line))
	b.WriteString(" - ")
	b.WriteString(level.Glyph())
	b.WriteByte(' ')
	b.WriteString(text)
	return b.String()
}

// emit writes to the native severity for level. Write errors are dropped.
func (s *SystemLog) emit(level Level, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return
	}

	switch level {
	case Verbose:
		_ = s.w.Info(line)
	case Debug:
		_ = s.w.Debug(line)
	case Warning:
		_ = s.w.Err(line)
	case Error:
		_ = s.w.Crit(line)
	default:
		_ = s.w.Info(line)
	}
}
