package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestComponentFollowsInit(t *testing.T) {
	log := Component("early")

	var buf bytes.Buffer
	InitWithHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("dropped")
	log.Warn("kept", "n", 1)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record passed a warn handler: %q", out)
	}
	if !strings.Contains(out, "component=early") || !strings.Contains(out, "msg=kept") {
		t.Errorf("component logger did not reach the new handler: %q", out)
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	InitWithHandler(slog.NewTextHandler(&buf, nil))

	ctx := ContextWithConnID(ContextWithPeer(context.Background(), "10.0.0.7"), 42)
	WithContext(ctx).WithGroup("report").Info("stored", "fields", 3)

	out := buf.String()
	for _, want := range []string{"peer=10.0.0.7", "conn_id=42", "report.fields=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, slog.LevelInfo, true)).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON line, got %q", buf.String())
	}
}

// countingHandler counts how often it is derived.
type countingHandler struct {
	slog.Handler
	derived *int
}

func (h countingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	*h.derived++
	return countingHandler{Handler: h.Handler.WithAttrs(attrs), derived: h.derived}
}

func TestDerivedHandlerCachedPerInit(t *testing.T) {
	var buf bytes.Buffer
	derived := 0
	InitWithHandler(countingHandler{Handler: slog.NewTextHandler(&buf, nil), derived: &derived})

	log := Component("cached")
	for i := 0; i < 100; i++ {
		log.Info("line", "i", i)
	}
	if derived != 1 {
		t.Errorf("WithAttrs ran %d times for 100 records, want 1", derived)
	}

	var next bytes.Buffer
	InitWithHandler(countingHandler{Handler: slog.NewTextHandler(&next, nil), derived: &derived})
	log.Info("after init")
	if derived != 2 {
		t.Errorf("WithAttrs ran %d times after re-init, want 2", derived)
	}
	if !strings.Contains(next.String(), "component=cached") {
		t.Errorf("record did not reach the new handler: %q", next.String())
	}
}
