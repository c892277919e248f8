package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriterCreatesRotatedLog(t *testing.T) {
	dir := t.TempDir()
	c := Config{Dir: filepath.Join(dir, "logs")}
	w, err := c.Writer("miroimage")
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	if w == nil {
		t.Fatalf("expected writer when Dir is set")
	}
	if _, err := w.Write([]byte("model loading\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(c.Path("miroimage"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "model loading") {
		t.Fatalf("log content missing: %q", b)
	}
}

func TestWriterNilWithoutDir(t *testing.T) {
	w, err := Config{}.Writer("miroshape")
	if err != nil || w != nil {
		t.Fatalf("expected nil writer, got %v, %v", w, err)
	}
}

func TestColorTextHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(h)
	log.Warn("already running", "service", "miroimage")
	out := buf.String()
	if !strings.Contains(out, "\033[33m") {
		t.Fatalf("warn not colored yellow: %q", out)
	}
	if !strings.Contains(out, "already running") {
		t.Fatalf("message missing: %q", out)
	}
	// handler must still be usable via the slog.Handler interface
	if err := h.Handle(context.Background(), slog.Record{Level: slog.LevelError, Message: "x"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}
