package pidfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/intimeai/miroctl/internal/service"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run", "miroimage.pid")
	spec := service.DefaultImage().Spec()

	if err := Write(path, 4242, spec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pid, got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("pid = %d, want 4242", pid)
	}
	if got == nil || got.Name != service.Image {
		t.Fatalf("snapshot not recovered: %+v", got)
	}
	found := false
	for _, kv := range got.Env {
		if kv == "MIROIMAGE_PORT=8081" {
			found = true
		}
	}
	if !found {
		t.Fatalf("launch env not persisted: %v", got.Env)
	}
}

func TestReadPIDOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.pid")
	if err := os.WriteFile(path, []byte("999\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	pid, spec, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if pid != 999 || spec != nil {
		t.Fatalf("got %d, %+v", pid, spec)
	}
}

func TestReadGarbageSnapshotIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.pid")
	if err := os.WriteFile(path, []byte("77\n{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	pid, spec, err := Read(path)
	if err != nil || pid != 77 || spec != nil {
		t.Fatalf("got %d, %+v, %v", pid, spec, err)
	}
}

func TestReadMissingAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.pid")
	if _, _, err := Read(path); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if Exists(path) {
		t.Fatalf("Exists true for missing file")
	}
	if err := os.WriteFile(path, []byte("1\n"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	Remove(path)
	if Exists(path) {
		t.Fatalf("Remove left file behind")
	}
}
