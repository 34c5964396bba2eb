package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestInitText(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitWriter(&buf, "info", "text")
	slog.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text output missing message: %q", buf.String())
	}
}

func TestInitJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitWriter(&buf, "debug", "JSON")
	slog.Debug("detail")
	if !strings.Contains(buf.String(), `"msg":"detail"`) {
		t.Errorf("json output missing message: %q", buf.String())
	}
	SetLevel(slog.LevelInfo)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  Error  ", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		parseLevel(tt.input)
		if level.Level() != tt.want {
			t.Errorf("parseLevel(%q): got %v, want %v", tt.input, level.Level(), tt.want)
		}
	}
	SetLevel(slog.LevelInfo)
}

func TestValidLevel(t *testing.T) {
	for _, s := range []string{"", "debug", "INFO", "warn", "warning", " error "} {
		if !ValidLevel(s) {
			t.Errorf("ValidLevel(%q) = false", s)
		}
	}
	for _, s := range []string{"trace", "fatal", "verbose"} {
		if ValidLevel(s) {
			t.Errorf("ValidLevel(%q) = true", s)
		}
	}
}

func TestDynamicHandlerEnabled(t *testing.T) {
	SetLevel(slog.LevelWarn)
	defer SetLevel(slog.LevelInfo)

	h := &dynamicHandler{}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestDynamicHandlerWithAttrsKeepsComponent(t *testing.T) {
	h := &dynamicHandler{attrs: []slog.Attr{slog.String("component", "nav")}}

	h2, ok := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).(*dynamicHandler)
	if !ok {
		t.Fatal("WithAttrs should return *dynamicHandler")
	}
	if len(h2.attrs) != 2 || h2.attrs[0].Key != "component" || h2.attrs[1].Key != "k" {
		t.Errorf("unexpected attrs: %v", h2.attrs)
	}
	if len(h.attrs) != 1 {
		t.Error("WithAttrs must not modify the receiver")
	}
}

func TestCaptureForTest(t *testing.T) {
	c := CaptureForTest()
	defer c.Restore()

	slog.Info("hello")
	slog.Warn("warning message")
	slog.Debug("debug detail")

	records := c.Records()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if !c.Has(slog.LevelInfo, "hello") {
		t.Error("should have info 'hello'")
	}
	if c.Has(slog.LevelError, "hello") {
		t.Error("should not match error level")
	}
	if c.Count(slog.LevelDebug) != 1 {
		t.Errorf("expected 1 debug, got %d", c.Count(slog.LevelDebug))
	}
}

func TestCaptureRestore(t *testing.T) {
	prev := slog.Default()
	c := CaptureForTest()
	c.Restore()

	if slog.Default() != prev {
		t.Error("default logger not restored")
	}
}

func TestForTagsComponent(t *testing.T) {
	c := CaptureForTest()
	defer c.Restore()

	logger := For("navigator").With("load_id", "abc")
	logger.Info("records loaded", "count", 3)

	if !c.HasAttr(slog.LevelInfo, "records loaded", "component", "navigator") {
		t.Error("component attribute missing")
	}
	if !c.HasAttr(slog.LevelInfo, "records loaded", "load_id", "abc") {
		t.Error("With attribute missing")
	}
}
