package bonsai

import (
	"errors"
	"io"
	"sync"
)

// DiagnosticLogger receives the dispatcher's own faults, such as a driver
// that panicked. Compatible with logging.Logger and slog.Logger.
type DiagnosticLogger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards diagnostics.
type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Logger is the façade that fans log events out to registered drivers.
//
// A Logger is created once at the composition root and passed to whatever
// needs to log. It holds the driver registry and the filter configuration:
// a minimum level and a debug focus switch. With debug focus enabled only
// Debug events are admitted, whatever the minimum level; with it disabled,
// events at or above the minimum level are admitted.
//
// Store payloads bypass the filter and always reach every driver.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Drivers are invoked outside the lock on a snapshot of the registry,
//     so a driver may itself log or register without deadlocking.
//   - Logging never panics: a driver panic is recovered, reported to the
//     diagnostic logger, and delivery continues with the next driver.
//   - Every method may be called on a nil *Logger. Mutators do nothing,
//     accessors return the defaults New would report, and nothing is
//     admitted.
type Logger struct {
	mu           sync.RWMutex
	drivers      []Driver
	minimumLevel Level
	debugFocus   bool
	diag         DiagnosticLogger
}

// New creates a Logger with no drivers, a minimum level of Verbose and
// debug focus disabled.
func New() *Logger {
	return &Logger{
		minimumLevel: Verbose,
		diag:         noopLogger{},
	}
}

// SetLogger sets where recovered driver faults are reported.
// A nil logger restores the default, which discards them.
func (l *Logger) SetLogger(logger DiagnosticLogger) {
	if l == nil {
		return
	}
	if logger == nil {
		logger = noopLogger{}
	}
	l.mu.Lock()
	l.diag = logger
	l.mu.Unlock()
}

// Register adds a driver to the end of the registry.
//
// Registering a driver that is already present (by identity) is a no-op, as
// is registering nil. Neither case is an error.
//
// Returns:
//   - bool: true if the driver was added
func (l *Logger) Register(d Driver) bool {
	if l == nil || d == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.drivers {
		if sameDriver(existing, d) {
			return false
		}
	}
	l.drivers = append(l.drivers, d)
	return true
}

// Unregister removes a driver from the registry, preserving the order of
// the others.
//
// Returns:
//   - bool: true if the driver was present
func (l *Logger) Unregister(d Driver) bool {
	if l == nil || d == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i, existing := range l.drivers {
		if sameDriver(existing, d) {
			next := make([]Driver, 0, len(l.drivers)-1)
			next = append(next, l.drivers[:i]...)
			next = append(next, l.drivers[i+1:]...)
			l.drivers = next
			return true
		}
	}
	return false
}

// Drivers returns a copy of the registry in registration order.
func (l *Logger) Drivers() []Driver {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Driver, len(l.drivers))
	copy(out, l.drivers)
	return out
}

// Len returns the number of registered drivers.
func (l *Logger) Len() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.drivers)
}

// SetMinimumLevel sets the threshold used when debug focus is disabled.
func (l *Logger) SetMinimumLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.minimumLevel = level
	l.mu.Unlock()
}

// MinimumLevel returns the current threshold.
func (l *Logger) MinimumLevel() Level {
	if l == nil {
		return Verbose
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.minimumLevel
}

// SetDebugFocus enables or disables debug focus.
//
// While enabled, only Debug events are admitted and everything else is
// suppressed regardless of the minimum level. It stays on until explicitly
// disabled.
func (l *Logger) SetDebugFocus(enabled bool) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.debugFocus = enabled
	l.mu.Unlock()
}

// DebugFocusEnabled reports whether debug focus is on.
func (l *Logger) DebugFocusEnabled() bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.debugFocus
}

// Filter is a snapshot of the filter configuration.
type Filter struct {
	MinimumLevel Level `json:"minimum_level"`
	DebugFocus   bool  `json:"debug_focus"`
}

// Filter modes as reported by Filter.Mode.
const (
	ModeThreshold = "threshold"
	ModeFocus     = "focus"
)

// Mode names the active admission rule.
func (f Filter) Mode() string {
	if f.DebugFocus {
		return ModeFocus
	}
	return ModeThreshold
}

// Filter returns the current filter configuration.
func (l *Logger) Filter() Filter {
	if l == nil {
		return Filter{MinimumLevel: Verbose}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Filter{MinimumLevel: l.minimumLevel, DebugFocus: l.debugFocus}
}

// SetFilter replaces both filter settings in one step.
func (l *Logger) SetFilter(f Filter) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.minimumLevel = f.MinimumLevel
	l.debugFocus = f.DebugFocus
	l.mu.Unlock()
}

// FilterPatch is a partial filter update. Nil fields are left unchanged.
type FilterPatch struct {
	MinimumLevel *Level `json:"minimum_level,omitempty"`
	DebugFocus   *bool  `json:"debug_focus,omitempty"`
}

// PatchFilter applies p under one lock acquisition and returns the
// resulting filter.
func (l *Logger) PatchFilter(p FilterPatch) Filter {
	if l == nil {
		return Filter{MinimumLevel: Verbose}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if p.MinimumLevel != nil {
		l.minimumLevel = *p.MinimumLevel
	}
	if p.DebugFocus != nil {
		l.debugFocus = *p.DebugFocus
	}
	return Filter{MinimumLevel: l.minimumLevel, DebugFocus: l.debugFocus}
}

// ShouldLog reports whether an event at level would be admitted under the
// current filter configuration.
func (l *Logger) ShouldLog(level Level) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return admit(level, l.debugFocus, l.minimumLevel)
}

// admit is the admission rule. It depends only on its arguments.
func admit(level Level, debugFocus bool, minimum Level) bool {
	if debugFocus {
		return level == Debug
	}
	return level >= minimum
}

// Log dispatches a free-text event to every driver, if admitted.
// Logging through a nil Logger is a no-op.
func (l *Logger) Log(level Level, text string, origin Origin) {
	drivers, diag, ok := l.admitted(level)
	if !ok {
		return
	}
	for _, d := range drivers {
		invoke(diag, d, "log", func() { d.LogMessage(level, text, origin) })
	}
}

// LogMetadata dispatches a structured event to every driver, if admitted.
func (l *Logger) LogMetadata(level Level, metadata Metadata, origin Origin) {
	drivers, diag, ok := l.admitted(level)
	if !ok {
		return
	}
	for _, d := range drivers {
		invoke(diag, d, "log_metadata", func() { d.LogMetadata(level, metadata, origin) })
	}
}

// Emit dispatches an optional message and then optional metadata at one
// level, under a single filter decision and registry snapshot. A nil text
// or nil metadata skips that part.
//
// Returns:
//   - bool: whether the filter admitted the level, which is also what
//     happened to both parts
func (l *Logger) Emit(level Level, text *string, metadata Metadata, origin Origin) bool {
	if l == nil {
		return false
	}
	l.mu.RLock()
	ok := admit(level, l.debugFocus, l.minimumLevel)
	drivers := make([]Driver, len(l.drivers))
	copy(drivers, l.drivers)
	diag := l.diag
	l.mu.RUnlock()

	if !ok {
		return false
	}
	if text != nil {
		for _, d := range drivers {
			invoke(diag, d, "log", func() { d.LogMessage(level, *text, origin) })
		}
	}
	if metadata != nil {
		for _, d := range drivers {
			invoke(diag, d, "log_metadata", func() { d.LogMetadata(level, metadata, origin) })
		}
	}
	return true
}

// LogError reduces err to its description and dispatches it through the
// message path. A nil error is ignored.
func (l *Logger) LogError(level Level, err error, origin Origin) {
	if err == nil {
		return
	}
	l.Log(level, Describe(err), origin)
}

// Store hands metadata to every driver's Store hook.
// It is not subject to filtering.
func (l *Logger) Store(metadata Metadata) {
	if l == nil {
		return
	}
	l.mu.RLock()
	drivers := make([]Driver, len(l.drivers))
	copy(drivers, l.drivers)
	diag := l.diag
	l.mu.RUnlock()

	for _, d := range drivers {
		invoke(diag, d, "store", func() { d.Store(metadata) })
	}
}

// Reset clears the registry and restores the default filter configuration.
// It exists for test isolation and lifecycle hooks; drivers are not closed.
func (l *Logger) Reset() {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.drivers = nil
	l.minimumLevel = Verbose
	l.debugFocus = false
	l.mu.Unlock()
}

// Close closes every registered driver that implements io.Closer, in
// registration order. The registry is left intact.
//
// Returns:
//   - error: all close errors joined, or nil
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	for _, d := range l.Drivers() {
		c, ok := d.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// admitted evaluates the filter and snapshots the registry under one lock
// acquisition, so the decision and the driver set are consistent.
func (l *Logger) admitted(level Level) ([]Driver, DiagnosticLogger, bool) {
	if l == nil {
		return nil, nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !admit(level, l.debugFocus, l.minimumLevel) || len(l.drivers) == 0 {
		return nil, nil, false
	}
	drivers := make([]Driver, len(l.drivers))
	copy(drivers, l.drivers)
	return drivers, l.diag, true
}

// invoke calls fn, recovering any panic raised by the driver.
func invoke(diag DiagnosticLogger, d Driver, op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			report(diag, d, op, r)
		}
	}()
	fn()
}

// report forwards a recovered panic to the diagnostic logger. A fault in
// the reporting path is dropped.
func report(diag DiagnosticLogger, d Driver, op string, r any) {
	defer func() {
		_ = recover()
	}()
	diag.Error("bonsai driver panic recovered",
		"driver", DriverName(d),
		"operation", op,
		"panic", r,
	)
}
