package bonsai

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

// stubDriver counts calls and records what it received.
type stubDriver struct {
	mu             sync.Mutex
	messageCount   int
	metadataCount  int
	storeCallCount int
	levels         []Level
	texts          []string
	origins        []Origin
	lastMetadata   Metadata
	lastStored     Metadata
}

func (s *stubDriver) LogMessage(level Level, text string, origin Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageCount++
	s.levels = append(s.levels, level)
	s.texts = append(s.texts, text)
	s.origins = append(s.origins, origin)
}

func (s *stubDriver) LogMetadata(level Level, metadata Metadata, origin Origin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadataCount++
	s.levels = append(s.levels, level)
	s.origins = append(s.origins, origin)
	s.lastMetadata = metadata
}

func (s *stubDriver) Store(metadata Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storeCallCount++
	s.lastStored = metadata
}

// callCount is the number of log calls of either shape.
func (s *stubDriver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount + s.metadataCount
}

// orderDriver appends its id to a shared slice on every call.
type orderDriver struct {
	id  int
	log *[]int
}

func (o *orderDriver) LogMessage(Level, string, Origin)    { *o.log = append(*o.log, o.id) }
func (o *orderDriver) LogMetadata(Level, Metadata, Origin) { *o.log = append(*o.log, o.id) }
func (o *orderDriver) Store(Metadata)                      { *o.log = append(*o.log, o.id) }

// panicDriver panics on every call.
type panicDriver struct{}

func (*panicDriver) LogMessage(Level, string, Origin)    { panic("boom") }
func (*panicDriver) LogMetadata(Level, Metadata, Origin) { panic("boom") }
func (*panicDriver) Store(Metadata)                      { panic("boom") }

// valueDriver is a comparable non-pointer driver.
type valueDriver struct{ name string }

func (valueDriver) LogMessage(Level, string, Origin)    {}
func (valueDriver) LogMetadata(Level, Metadata, Origin) {}
func (valueDriver) Store(Metadata)                      {}

// sliceDriver cannot be compared with ==.
type sliceDriver struct{ tags []string }

func (sliceDriver) LogMessage(Level, string, Origin)    {}
func (sliceDriver) LogMetadata(Level, Metadata, Origin) {}
func (sliceDriver) Store(Metadata)                      {}

// recordingDiag captures diagnostics.
type recordingDiag struct {
	mu     sync.Mutex
	errors []string
}

func (r *recordingDiag) Warn(string, ...any) {}
func (r *recordingDiag) Error(msg string, _ ...any) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

func TestNew_Defaults(t *testing.T) {
	l := New()

	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
	if l.MinimumLevel() != Verbose {
		t.Errorf("MinimumLevel() = %v, want verbose", l.MinimumLevel())
	}
	if l.DebugFocusEnabled() {
		t.Error("DebugFocusEnabled() = true, want false")
	}
}

func TestRegister_MultipleDrivers(t *testing.T) {
	l := New()
	driver := &stubDriver{}
	driver2 := &stubDriver{}

	l.Register(driver)
	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}

	l.Register(driver2)
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
}

func TestRegister_SameDriverOnce(t *testing.T) {
	l := New()
	driver := &stubDriver{}

	if !l.Register(driver) {
		t.Error("first Register() = false, want true")
	}
	for i := 0; i < 5; i++ {
		if l.Register(driver) {
			t.Errorf("repeat Register() #%d = true, want false", i)
		}
	}

	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestRegister_Identity(t *testing.T) {
	tests := []struct {
		name    string
		drivers []Driver
		want    int
	}{
		{
			name:    "nil is ignored",
			drivers: []Driver{nil},
			want:    0,
		},
		{
			name:    "equal values dedupe",
			drivers: []Driver{valueDriver{name: "a"}, valueDriver{name: "a"}},
			want:    1,
		},
		{
			name:    "different values both kept",
			drivers: []Driver{valueDriver{name: "a"}, valueDriver{name: "b"}},
			want:    2,
		},
		{
			name:    "uncomparable values never dedupe",
			drivers: []Driver{sliceDriver{}, sliceDriver{}},
			want:    2,
		},
		{
			name:    "distinct pointers to equal stubs both kept",
			drivers: []Driver{&stubDriver{}, &stubDriver{}, &stubDriver{}},
			want:    3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			for _, d := range tt.drivers {
				l.Register(d)
			}
			if l.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", l.Len(), tt.want)
			}
		})
	}
}

func TestUnregister(t *testing.T) {
	l := New()
	var order []int
	a := &orderDriver{id: 1, log: &order}
	b := &orderDriver{id: 2, log: &order}
	c := &orderDriver{id: 3, log: &order}
	l.Register(a)
	l.Register(b)
	l.Register(c)

	if !l.Unregister(b) {
		t.Fatal("Unregister(b) = false, want true")
	}
	if l.Unregister(b) {
		t.Error("second Unregister(b) = true, want false")
	}

	l.Log(Error, "x", Origin{})
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Errorf("fan-out order = %v, want [1 3]", order)
	}
}

func TestLog_FanOutInRegistrationOrder(t *testing.T) {
	l := New()
	var order []int
	for i := 1; i <= 4; i++ {
		l.Register(&orderDriver{id: i, log: &order})
	}

	l.Log(Verbose, "x", Origin{})
	l.LogMetadata(Warning, Metadata{"k": "v"}, Origin{})
	l.Store(Metadata{"k": "v"})

	want := []int{1, 2, 3, 4, 1, 2, 3, 4, 1, 2, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("calls = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("calls = %v, want %v", order, want)
		}
	}
}

func TestLog_DriverCalled(t *testing.T) {
	l := New()
	driver := &stubDriver{}
	driver2 := &stubDriver{}
	l.Register(driver)
	l.Register(driver2)

	Message("x").Log(l, Verbose)

	if driver.callCount() != 1 {
		t.Errorf("driver calls = %d, want 1", driver.callCount())
	}
	if driver2.callCount() != 1 {
		t.Errorf("driver2 calls = %d, want 1", driver2.callCount())
	}
	if driver.texts[0] != "x" {
		t.Errorf("text = %q, want %q", driver.texts[0], "x")
	}
}

func TestLog_Metadata(t *testing.T) {
	l := New()
	driver := &stubDriver{}
	l.Register(driver)

	Metadata{"name": "Mr. Pink"}.Log(l, Warning)

	if driver.metadataCount != 1 {
		t.Fatalf("metadata calls = %d, want 1", driver.metadataCount)
	}
	if driver.messageCount != 0 {
		t.Errorf("message calls = %d, want 0", driver.messageCount)
	}
	if got := driver.lastMetadata["name"]; got != "Mr. Pink" {
		t.Errorf("metadata[name] = %v, want Mr. Pink", got)
	}
	if driver.levels[0] != Warning {
		t.Errorf("level = %v, want warning", driver.levels[0])
	}
}

func TestLog_Errors(t *testing.T) {
	l := New()
	driver := &stubDriver{}
	l.Register(driver)

	LogErr(l, errors.New("generic failure"))

	if driver.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", driver.callCount())
	}
	if driver.levels[0] != Warning {
		t.Errorf("level = %v, want warning by default", driver.levels[0])
	}
	if driver.texts[0] != "generic failure" {
		t.Errorf("text = %q, want %q", driver.texts[0], "generic failure")
	}

	LogErr(l, nil)
	if driver.callCount() != 1 {
		t.Errorf("nil error logged; calls = %d, want 1", driver.callCount())
	}
}

func TestDebugFocus(t *testing.T) {
	l := New()
	driver := &stubDriver{}
	l.SetDebugFocus(true)
	l.Register(driver)

	Message("").Log(l, Error)
	Message("").Log(l, Verbose)
	Message("").Log(l, Warning)

	if driver.callCount() != 0 {
		t.Fatalf("calls = %d, want 0", driver.callCount())
	}

	Message("").Log(l, Debug)
	if driver.callCount() != 1 {
		t.Errorf("calls after debug = %d, want 1", driver.callCount())
	}

	l.SetDebugFocus(false)
	Message("").Log(l, Warning)
	if driver.callCount() != 2 {
		t.Errorf("calls after disabling focus = %d, want 2", driver.callCount())
	}
}

func TestShouldLog(t *testing.T) {
	l := New()

	for _, focus := range []bool{false, true} {
		for _, threshold := range Levels() {
			for _, level := range Levels() {
				l.SetDebugFocus(focus)
				l.SetMinimumLevel(threshold)

				want := level >= threshold
				if focus {
					want = level == Debug
				}
				if got := l.ShouldLog(level); got != want {
					t.Errorf("ShouldLog(%v) focus=%v threshold=%v = %v, want %v",
						level, focus, threshold, got, want)
				}
			}
		}
	}
}

func TestLog_BelowThresholdSuppressed(t *testing.T) {
	l := New()
	driver := &stubDriver{}
	l.Register(driver)
	l.SetMinimumLevel(Warning)

	l.Verbose("no")
	l.Debug("no")
	Metadata{"k": 1}.Log(l, Debug)
	l.Warning("yes")
	l.Error("yes")

	if driver.callCount() != 2 {
		t.Errorf("calls = %d, want 2", driver.callCount())
	}
}

func TestStore_IgnoresFilter(t *testing.T) {
	l := New()
	driver := &stubDriver{}
	l.Register(driver)
	l.SetDebugFocus(true)
	l.SetMinimumLevel(Error)

	Metadata{"Hello": "World"}.Store(l)

	if driver.storeCallCount != 1 {
		t.Fatalf("store calls = %d, want 1", driver.storeCallCount)
	}
	if driver.lastStored["Hello"] != "World" {
		t.Errorf("stored = %v, want Hello=World", driver.lastStored)
	}
	if driver.callCount() != 0 {
		t.Errorf("log calls = %d, want 0", driver.callCount())
	}
}

func TestReset_RoundTrip(t *testing.T) {
	l := New()
	l.Register(&stubDriver{})
	l.Register(&stubDriver{})
	l.SetMinimumLevel(Error)
	l.SetDebugFocus(true)

	l.Reset()

	if l.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", l.Len())
	}
	if l.MinimumLevel() != Verbose {
		t.Errorf("MinimumLevel() after Reset = %v, want verbose", l.MinimumLevel())
	}
	if l.DebugFocusEnabled() {
		t.Error("DebugFocusEnabled() after Reset = true, want false")
	}

	driver := &stubDriver{}
	l.Register(driver)
	l.Verbose("fresh")
	if driver.callCount() != 1 {
		t.Errorf("calls after Reset = %d, want 1", driver.callCount())
	}
}

func TestLog_PanickingDriverDoesNotStopDispatch(t *testing.T) {
	l := New()
	diag := &recordingDiag{}
	l.SetLogger(diag)

	before := &stubDriver{}
	after := &stubDriver{}
	l.Register(before)
	l.Register(&panicDriver{})
	l.Register(after)

	l.Error("x")
	l.LogMetadata(Error, Metadata{"a": 1}, Origin{})
	l.Store(Metadata{"a": 1})

	if before.callCount() != 2 || after.callCount() != 2 {
		t.Errorf("calls before=%d after=%d, want 2 each", before.callCount(), after.callCount())
	}
	if after.storeCallCount != 1 {
		t.Errorf("store calls after panic = %d, want 1", after.storeCallCount)
	}
	if len(diag.errors) != 3 {
		t.Errorf("diagnostics = %d, want 3", len(diag.errors))
	}
}

func TestLog_DriverMayLogReentrantly(t *testing.T) {
	l := New()
	inner := &stubDriver{}
	reentrant := &Funcs{
		Message: func(level Level, text string, _ Origin) {
			if text == "outer" {
				l.Register(inner)
				l.Log(level, "inner", Origin{})
			}
		},
	}
	l.Register(reentrant)

	l.Verbose("outer")

	if inner.callCount() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.callCount())
	}
}

func TestLog_Concurrent(t *testing.T) {
	l := New()
	driver := &stubDriver{}
	l.Register(driver)

	const workers = 8
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				l.Log(Warning, "x", Origin{})
				l.Register(&stubDriver{})
				l.SetMinimumLevel(Verbose)
			}
		}()
	}
	wg.Wait()

	if driver.callCount() != workers*perWorker {
		t.Errorf("calls = %d, want %d", driver.callCount(), workers*perWorker)
	}
}

type closingDriver struct {
	stubDriver
	closed bool
	err    error
}

func (c *closingDriver) Close() error {
	c.closed = true
	return c.err
}

func TestClose(t *testing.T) {
	l := New()
	ok := &closingDriver{}
	failing := &closingDriver{err: errors.New("flush failed")}
	l.Register(ok)
	l.Register(&stubDriver{})
	l.Register(failing)

	err := l.Close()
	if err == nil {
		t.Fatal("Close() error = nil, want flush failure")
	}
	if !ok.closed || !failing.closed {
		t.Error("Close() did not close every closer")
	}
	if l.Len() != 3 {
		t.Errorf("Len() after Close = %d, want 3", l.Len())
	}
}

func TestLogf_Origin(t *testing.T) {
	l := New()
	driver := &stubDriver{}
	l.Register(driver)

	l.Warningf("disk %d%% full", 91)

	if driver.texts[0] != "disk 91% full" {
		t.Errorf("text = %q", driver.texts[0])
	}
	if got := driver.origins[0].FileName(); got != "logger_test.go" {
		t.Errorf("origin file = %q, want logger_test.go", got)
	}
	if driver.origins[0].Line == 0 {
		t.Error("origin line = 0")
	}
}

func TestFilter_Snapshot(t *testing.T) {
	logger := New()

	if got := logger.Filter(); got.MinimumLevel != Verbose || got.DebugFocus || got.Mode() != ModeThreshold {
		t.Errorf("default Filter() = %+v (%s)", got, got.Mode())
	}

	logger.SetFilter(Filter{MinimumLevel: Error, DebugFocus: true})

	got := logger.Filter()
	if got.MinimumLevel != Error || !got.DebugFocus {
		t.Errorf("Filter() = %+v, want error with focus", got)
	}
	if got.Mode() != ModeFocus {
		t.Errorf("Mode() = %q, want %q", got.Mode(), ModeFocus)
	}
	if logger.MinimumLevel() != Error || !logger.DebugFocusEnabled() {
		t.Error("SetFilter did not update individual settings")
	}
}

func TestPatchFilter(t *testing.T) {
	logger := New()
	warning := Warning
	focus := true

	got := logger.PatchFilter(FilterPatch{MinimumLevel: &warning})
	if got.MinimumLevel != Warning || got.DebugFocus {
		t.Errorf("after level patch = %+v", got)
	}

	got = logger.PatchFilter(FilterPatch{DebugFocus: &focus})
	if got.MinimumLevel != Warning || !got.DebugFocus {
		t.Errorf("after focus patch = %+v, level should be untouched", got)
	}

	got = logger.PatchFilter(FilterPatch{})
	if got != logger.Filter() {
		t.Errorf("empty patch changed filter: %+v", got)
	}
}

// renderDriver renders everything it receives, the way text drivers do.
type renderDriver struct {
	out []string
}

func (r *renderDriver) LogMessage(_ Level, text string, _ Origin) { r.out = append(r.out, text) }
func (r *renderDriver) LogMetadata(_ Level, metadata Metadata, _ Origin) {
	r.out = append(r.out, Render(metadata))
}
func (r *renderDriver) Store(metadata Metadata) { r.out = append(r.out, Render(metadata)) }

func TestLog_CyclicMetadata(t *testing.T) {
	l := New()
	diag := &recordingDiag{}
	l.SetLogger(diag)
	var buf bytes.Buffer
	rd := &renderDriver{}
	l.Register(NewConsole(&buf))
	l.Register(rd)

	m := Metadata{"name": "loop"}
	m["self"] = m

	m.Log(l, Warning)
	m.Store(l)

	if len(diag.errors) != 0 {
		t.Fatalf("driver faults = %v, want none", diag.errors)
	}
	if !strings.Contains(buf.String(), CycleMarker) {
		t.Errorf("console output = %q, want %q", buf.String(), CycleMarker)
	}
	want := "{name: loop, self: " + CycleMarker + "}"
	if len(rd.out) != 2 || rd.out[0] != want || rd.out[1] != want {
		t.Errorf("rendered = %q, want %q twice", rd.out, want)
	}
}

func TestEmit(t *testing.T) {
	l := New()
	var order []int
	first := &orderDriver{id: 1, log: &order}
	second := &orderDriver{id: 2, log: &order}
	l.Register(first)
	l.Register(second)

	text := "hello"
	if !l.Emit(Warning, &text, Metadata{"k": "v"}, Origin{}) {
		t.Fatal("Emit() = false, want admitted")
	}
	// Message to every driver, then metadata to every driver.
	want := []int{1, 2, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}

	stub := &stubDriver{}
	l.Register(stub)
	l.Emit(Debug, nil, Metadata{"k": "v"}, Origin{})
	if stub.messageCount != 0 || stub.metadataCount != 1 {
		t.Errorf("nil text: messages=%d metadata=%d, want 0/1", stub.messageCount, stub.metadataCount)
	}

	l.SetMinimumLevel(Error)
	if l.Emit(Warning, &text, nil, Origin{}) {
		t.Error("Emit() below minimum = true, want false")
	}
	if stub.callCount() != 1 {
		t.Errorf("filtered Emit reached the driver: calls = %d", stub.callCount())
	}
}

func TestEmit_AdmittedWithoutDrivers(t *testing.T) {
	l := New()
	text := "nobody listening"

	if !l.Emit(Verbose, &text, nil, Origin{}) {
		t.Error("Emit() = false, want true: admission does not depend on drivers")
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	stub := &stubDriver{}
	text := "t"
	focus := true

	tests := []struct {
		name string
		call func() bool
	}{
		{name: "SetLogger", call: func() bool { l.SetLogger(&recordingDiag{}); return true }},
		{name: "Register", call: func() bool { return !l.Register(stub) }},
		{name: "Unregister", call: func() bool { return !l.Unregister(stub) }},
		{name: "Drivers", call: func() bool { return l.Drivers() == nil }},
		{name: "Len", call: func() bool { return l.Len() == 0 }},
		{name: "SetMinimumLevel", call: func() bool { l.SetMinimumLevel(Error); return true }},
		{name: "MinimumLevel", call: func() bool { return l.MinimumLevel() == Verbose }},
		{name: "SetDebugFocus", call: func() bool { l.SetDebugFocus(true); return true }},
		{name: "DebugFocusEnabled", call: func() bool { return !l.DebugFocusEnabled() }},
		{name: "Filter", call: func() bool { return l.Filter() == Filter{MinimumLevel: Verbose} }},
		{name: "SetFilter", call: func() bool { l.SetFilter(Filter{DebugFocus: true}); return true }},
		{name: "PatchFilter", call: func() bool {
			return l.PatchFilter(FilterPatch{DebugFocus: &focus}) == Filter{MinimumLevel: Verbose}
		}},
		{name: "Emit", call: func() bool { return !l.Emit(Error, &text, Metadata{"k": 1}, Origin{}) }},
		{name: "Reset", call: func() bool { l.Reset(); return true }},
		{name: "Close", call: func() bool { return l.Close() == nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.call() {
				t.Errorf("%s on a nil Logger returned a non-default result", tt.name)
			}
		})
	}
	if stub.callCount() != 0 {
		t.Errorf("driver reached through a nil Logger: calls = %d", stub.callCount())
	}
}
