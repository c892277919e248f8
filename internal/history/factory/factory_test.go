package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/intimeai/miroctl/internal/history"
)

func TestSQLiteDSNForms(t *testing.T) {
	dir := t.TempDir()
	for _, dsn := range []string{
		"sqlite://" + filepath.Join(dir, "events.db"),
		filepath.Join(dir, "plain.db"),
		"sqlite://:memory:",
	} {
		s, err := NewSinkFromDSN(dsn)
		if err != nil {
			t.Fatalf("NewSinkFromDSN(%q): %v", dsn, err)
		}
		if err := s.Send(context.Background(), history.Event{Type: history.EventStart, Service: "miroimage", PID: 1}); err != nil {
			t.Fatalf("Send via %q: %v", dsn, err)
		}
		_ = s.Close()
	}
}

func TestRejectsUnknownAndEmpty(t *testing.T) {
	if _, err := NewSinkFromDSN(""); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
	if _, err := NewSinkFromDSN("redis://localhost:6379"); err == nil {
		t.Fatalf("expected error for unsupported scheme")
	}
}

func TestNewSinksClosesOnFailure(t *testing.T) {
	dir := t.TempDir()
	good := "sqlite://" + filepath.Join(dir, "a.db")
	if _, err := NewSinks([]string{good, "redis://nope"}); err == nil {
		t.Fatalf("expected error from bad second DSN")
	}
	sinks, err := NewSinks([]string{good})
	if err != nil || len(sinks) != 1 {
		t.Fatalf("NewSinks: %v, %d sinks", err, len(sinks))
	}
	for _, s := range sinks {
		_ = s.Close()
	}
}
