package detector

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// OSProber probes the real process table.
type OSProber struct{}

func (OSProber) Alive(pid int) bool { return pidAlive(pid) }

// PIDDetector detects by a known PID number. A nil Prober probes the real
// process table.
type PIDDetector struct {
	PID    int
	Prober Prober
}

func (d PIDDetector) Alive() (bool, error) { return proberOr(d.Prober).Alive(d.PID), nil }
func (d PIDDetector) Describe() string     { return fmt.Sprintf("pid:%d", d.PID) }

// PIDFileDetector reads a pid file (first line is the PID, any following
// lines are launch metadata) and probes the recorded PID. A missing file is
// "not running", not an error; a stale file is left in place. A nil Prober
// probes the real process table.
type PIDFileDetector struct {
	Path   string
	Prober Prober
}

func (d PIDFileDetector) Alive() (bool, error) {
	b, err := os.ReadFile(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	pidLine, _, _ := strings.Cut(string(b), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return false, fmt.Errorf("invalid pid in %s: %w", d.Path, err)
	}
	return proberOr(d.Prober).Alive(pid), nil
}

func proberOr(p Prober) Prober {
	if p != nil {
		return p
	}
	return OSProber{}
}

func (d PIDFileDetector) Describe() string { return "pidfile:" + d.Path }
