package pidfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/intimeai/miroctl/internal/service"
)

// A pid file holds the child's PID on the first line and a JSON snapshot of
// the launch spec (command, host/port, composed environment) on the second.
// The snapshot is what makes a service's launch environment inspectable after
// the fact; readers must tolerate its absence.

// Write persists pid and the launch snapshot, creating the directory if needed.
func Write(path string, pid int, spec service.Spec) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	b, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	content := strconv.Itoa(pid) + "\n" + string(b) + "\n"
	return os.WriteFile(path, []byte(content), 0o600)
}

// Read returns the recorded PID and, when present, the launch snapshot.
// A pid-only file yields a nil spec. An unparsable snapshot is ignored rather
// than failing the read; the PID is still the source of truth.
func Read(path string) (int, *service.Spec, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, err
	}
	pidLine, rest, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return 0, nil, err
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return pid, nil, nil
	}
	var spec service.Spec
	if err := json.Unmarshal([]byte(rest), &spec); err != nil {
		return pid, nil, nil
	}
	return pid, &spec, nil
}

// Remove deletes the pid file, best-effort.
func Remove(path string) {
	_ = os.Remove(path)
}

// Exists reports whether a pid file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
