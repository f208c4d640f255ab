package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestRecord(level slog.Level, msg string, attrs ...slog.Attr) slog.Record {
	r := slog.NewRecord(time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC), level, msg, 0)
	r.AddAttrs(attrs...)
	return r
}

func TestTerminalHandler_Basic(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, nil)

	err := h.Handle(context.Background(), newTestRecord(slog.LevelInfo, "server started", slog.Int("port", 8080)))
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "12:30:45.000") {
		t.Errorf("output missing timestamp: %q", out)
	}
	if !strings.Contains(out, "INF") {
		t.Errorf("output missing level label: %q", out)
	}
	if !strings.Contains(out, "server started") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "port=") || !strings.Contains(out, "8080") {
		t.Errorf("output missing attribute: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("output should end with newline")
	}
}

func TestTerminalHandler_LevelLabels(t *testing.T) {
	tests := []struct {
		level slog.Level
		label string
	}{
		{slog.LevelDebug, "DBG"},
		{slog.LevelInfo, "INF"},
		{slog.LevelWarn, "WRN"},
		{slog.LevelError, "ERR"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			var buf bytes.Buffer
			h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

			if err := h.Handle(context.Background(), newTestRecord(tt.level, "msg")); err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.label) {
				t.Errorf("output %q missing label %q", buf.String(), tt.label)
			}
		})
	}
}

func TestTerminalHandler_Enabled(t *testing.T) {
	h := newTerminalHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("INFO should be disabled at WARN")
	}
	if !h.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("WARN should be enabled at WARN")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("ERROR should be enabled at WARN")
	}
}

func TestTerminalHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, nil)
	derived := h.WithAttrs([]slog.Attr{slog.String("component", "index")})

	if err := derived.Handle(context.Background(), newTestRecord(slog.LevelInfo, "built")); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "component=") {
		t.Errorf("output missing pre-set attribute: %q", buf.String())
	}
}

func TestTerminalHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, nil)
	grouped := h.WithGroup("sync")

	if err := grouped.Handle(context.Background(), newTestRecord(slog.LevelInfo, "done", slog.Int("upserts", 3))); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "sync.upserts=") {
		t.Errorf("output missing group-prefixed key: %q", buf.String())
	}
}

func TestTerminalHandler_GroupAttr(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, nil)

	rec := newTestRecord(slog.LevelInfo, "report",
		slog.Group("index", slog.Int("count", 7)))
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "index.count=") {
		t.Errorf("output missing nested group key: %q", buf.String())
	}
}

func TestTerminalHandler_QuotesStringsWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, nil)

	rec := newTestRecord(slog.LevelInfo, "msg", slog.String("title", "deep learning survey"))
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"deep learning survey"`) {
		t.Errorf("values containing spaces should be quoted: %q", buf.String())
	}
}

func TestTerminalHandler_EmptyGroupIsNoop(t *testing.T) {
	h := newTerminalHandler(&bytes.Buffer{}, nil)
	if h.WithGroup("") != h {
		t.Error("WithGroup(\"\") should return the receiver")
	}
}
