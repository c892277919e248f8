package detector

// Detector decides whether a tracked process is running. The supervisor only
// ever performs existence probes against the OS process table, never network
// readiness checks; keeping the probe behind an interface lets tests exercise
// start/stop logic without real processes.
type Detector interface {
	// Alive returns true if the process is detected as running.
	Alive() (bool, error)
	// Describe returns a human-readable description of the detection method.
	Describe() string
}

// Prober probes an arbitrary PID. The default implementation uses a
// signal-zero check; fakes substitute a process table of their own.
type Prober interface {
	Alive(pid int) bool
}
