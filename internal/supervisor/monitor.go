package supervisor

import (
	"context"
	"fmt"
	"io"
	"time"
)

const monitorTailLines = 10

// clearScreen is the ANSI erase-display + cursor-home sequence.
const clearScreen = "\033[2J\033[H"

// Monitor renders the status display to w every monitor interval until ctx
// is cancelled. It is purely observational; nothing is mutated.
func (s *Supervisor) Monitor(ctx context.Context, w io.Writer) error {
	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		s.renderMonitor(w)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) renderMonitor(w io.Writer) {
	fmt.Fprint(w, clearScreen)
	fmt.Fprintf(w, "miroctl monitor  %s  (interval %s, Ctrl-C to exit)\n\n",
		time.Now().Format("2006-01-02 15:04:05"), s.cfg.MonitorInterval)
	for _, st := range s.Statuses() {
		if st.Running {
			fmt.Fprintf(w, "  %-10s running  pid=%d  log=%s\n", st.Service, st.PID, st.LogFile)
		} else {
			fmt.Fprintf(w, "  %-10s stopped\n", st.Service)
		}
	}
	for _, st := range s.Statuses() {
		if !st.Running {
			continue
		}
		fmt.Fprintf(w, "\n--- %s (last %d lines) ---\n", st.Service, monitorTailLines)
		lines, err := Tail(st.LogFile, monitorTailLines)
		if err != nil {
			fmt.Fprintf(w, "  (no log: %v)\n", err)
			continue
		}
		for _, l := range lines {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
}
