package bonsai

import (
	"bytes"
	"strings"
	"testing"
)

var testOrigin = Origin{File: "/src/app/server.go", Function: "main.serve", Line: 42}

func TestConsole_LogMessage(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.LogMessage(Warning, "disk almost full", testOrigin)

	want := "[LOGGER] ⚠️ [server.go:42] disk almost full\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConsole_LogMetadata(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.LogMetadata(Debug, Metadata{"name": "Mr. Pink", "age": 6}, testOrigin)

	want := "[LOGGER] 👷🏻‍♀️ [server.go:42]\n" +
		"    age: 6\n" +
		"    name: Mr. Pink\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConsole_Disabled(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.SetEnabled(false)

	if c.Enabled() {
		t.Fatal("Enabled() = true after SetEnabled(false)")
	}

	c.LogMessage(Error, "boom", testOrigin)
	c.LogMetadata(Error, Metadata{"k": "v"}, testOrigin)
	if buf.Len() != 0 {
		t.Errorf("disabled console wrote %q", buf.String())
	}

	c.SetEnabled(true)
	c.LogMessage(Error, "boom", testOrigin)
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("re-enabled console output = %q", buf.String())
	}
}

func TestConsole_StoreIgnored(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Store(Metadata{"Hello": "World"})

	if buf.Len() != 0 {
		t.Errorf("Store wrote %q", buf.String())
	}
}

func TestConsole_ZeroOrigin(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.LogMessage(Verbose, "hi", Origin{})

	want := "[LOGGER] 🤫 [:0] hi\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConsole_Colour(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.SetColour(true)

	c.LogMessage(Error, "boom", testOrigin)

	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("colour output has no escape sequence: %q", out)
	}
	if !strings.HasSuffix(out, " boom\n") {
		t.Errorf("colour output = %q, want text suffix", out)
	}
}

func TestConsole_ThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.Register(NewConsole(&buf))

	logger.Warning("through the façade")

	out := buf.String()
	if !strings.HasPrefix(out, "[LOGGER] ⚠️ [console_test.go:") {
		t.Errorf("output = %q, want caller file in header", out)
	}
}
