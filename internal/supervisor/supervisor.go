package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/intimeai/miroctl/internal/config"
	"github.com/intimeai/miroctl/internal/detector"
	"github.com/intimeai/miroctl/internal/env"
	"github.com/intimeai/miroctl/internal/history"
	"github.com/intimeai/miroctl/internal/metrics"
	"github.com/intimeai/miroctl/internal/pidfile"
	"github.com/intimeai/miroctl/internal/service"
)

// Sentinel conditions. AlreadyRunning and NotRunning are informational:
// commands log them and keep a zero exit code.
var (
	ErrAlreadyRunning = errors.New("service already running")
	ErrNotRunning     = errors.New("service not running")
	ErrStartFailed    = errors.New("service exited during settle window")
)

// Controller abstracts OS process probing and signalling so lifecycle logic
// can be exercised against a fake process table in tests.
type Controller interface {
	Alive(pid int) bool
	Terminate(pid int) error // cooperative termination (SIGTERM to the group)
	Kill(pid int) error      // unconditional kill (SIGKILL)
}

// Status is the read-only view of one service reported by the status command.
type Status struct {
	Service service.Name `json:"service"`
	Running bool         `json:"running"`
	PID     int          `json:"pid,omitempty"`
	PIDFile string       `json:"pid_file"`
	LogFile string       `json:"log_file"`
}

// Supervisor orchestrates the two model services. It is sequential by design:
// children are independent OS processes reached only through environment
// variables at launch and signals afterwards. One invocation at a time is
// assumed; concurrent invocations may race on pid file writes.
type Supervisor struct {
	cfg  config.Config
	log  *slog.Logger
	ctl  Controller
	env  *env.Env
	rec  *history.Recorder
	poll time.Duration
}

type Option func(*Supervisor)

// WithLogger replaces the console logger.
func WithLogger(l *slog.Logger) Option { return func(s *Supervisor) { s.log = l } }

// WithController substitutes the process controller (tests).
func WithController(c Controller) Option { return func(s *Supervisor) { s.ctl = c } }

// WithRecorder attaches a lifecycle event recorder.
func WithRecorder(r *history.Recorder) Option { return func(s *Supervisor) { s.rec = r } }

// WithPollInterval tightens the liveness polling step (tests).
func WithPollInterval(d time.Duration) Option { return func(s *Supervisor) { s.poll = d } }

func New(cfg config.Config, opts ...Option) *Supervisor {
	e := env.New()
	e.SetAll(cfg.Env)
	s := &Supervisor{
		cfg:  cfg,
		log:  slog.Default(),
		ctl:  osController{},
		env:  e,
		poll: 500 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the configuration the supervisor was built with.
func (s *Supervisor) Config() config.Config { return s.cfg }

// alive probes one pid through the detector abstraction; the Controller
// doubles as the prober so fakes drive every liveness decision in tests.
func (s *Supervisor) alive(pid int) bool {
	ok, _ := detector.PIDDetector{PID: pid, Prober: s.ctl}.Alive()
	return ok
}

// buildCommand constructs the exec.Cmd for a launch command string. Commands
// with shell metacharacters run under /bin/sh -c; plain commands run directly.
func buildCommand(cmdStr string) *exec.Cmd {
	cmdStr = strings.TrimSpace(cmdStr)
	if cmdStr == "" {
		// will fail on Start, surfacing a clear error
		return exec.Command("")
	}
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	// #nosec G204
	return exec.Command(parts[0], parts[1:]...)
}

// Start launches one service. If its pid file references a live process the
// call is a no-op reporting ErrAlreadyRunning. On a successful fork the pid
// file is written immediately; the child is then observed for the settle
// window and a premature exit is reported as ErrStartFailed with the pid file
// removed and the log file left for diagnosis.
func (s *Supervisor) Start(ctx context.Context, name service.Name) error {
	spec, err := s.cfg.Spec(name)
	if err != nil {
		return err
	}
	pidPath := s.cfg.PIDFile(name)
	if pid, _, rerr := pidfile.Read(pidPath); rerr == nil && s.alive(pid) {
		s.log.Warn("already running", "service", name, "pid", pid)
		return ErrAlreadyRunning
	}

	logW, err := s.cfg.Log.Writer(string(name))
	if err != nil {
		return fmt.Errorf("open log for %s: %w", name, err)
	}
	cmd := buildCommand(spec.Command)
	cmd.Env = s.env.Merge(spec.Env)
	if logW != nil {
		cmd.Stdout = logW
		cmd.Stderr = logW
	}
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		if logW != nil {
			_ = logW.Close()
		}
		s.log.Error("failed to launch", "service", name, "command", spec.Command, "error", err)
		s.record(ctx, history.Event{Type: history.EventStartFailed, Service: string(name), Detail: err.Error()})
		metrics.IncStartFailure(string(name))
		return fmt.Errorf("launch %s: %w", name, err)
	}
	pid := cmd.Process.Pid
	if err := pidfile.Write(pidPath, pid, spec); err != nil {
		s.log.Error("failed to write pid file", "service", name, "path", pidPath, "error", err)
	}
	s.log.Info("launched, waiting for settle", "service", name, "pid", pid,
		"host", spec.Host, "port", spec.Port, "log", s.cfg.LogFile(name))

	// The wait goroutine reaps the child if it exits while we are still
	// around; once this process exits, the orphaned child is reparented.
	waitCh := make(chan error, 1)
	go func() {
		werr := cmd.Wait()
		if logW != nil {
			_ = logW.Close()
		}
		waitCh <- werr
	}()

	settle := time.NewTimer(s.cfg.Settle)
	defer settle.Stop()
	select {
	case werr := <-waitCh:
		pidfile.Remove(pidPath)
		detail := "exited during settle window"
		if werr != nil {
			detail = werr.Error()
		}
		s.log.Error("start failed", "service", name, "pid", pid, "detail", detail,
			"log", s.cfg.LogFile(name))
		s.record(ctx, history.Event{Type: history.EventStartFailed, Service: string(name), PID: pid, Detail: detail})
		metrics.IncStartFailure(string(name))
		return fmt.Errorf("%w: %s", ErrStartFailed, detail)
	case <-ctx.Done():
		return ctx.Err()
	case <-settle.C:
	}

	s.log.Info("started", "service", name, "pid", pid, "log", s.cfg.LogFile(name))
	s.record(ctx, history.Event{Type: history.EventStart, Service: string(name), PID: pid})
	metrics.IncStart(string(name))
	metrics.SetRunning(string(name), true)
	return nil
}

// Stop terminates one service: SIGTERM, bounded wait, then SIGKILL. The pid
// file is removed whenever a stop attempt targeted a running process, and
// also when it turns out to be stale.
func (s *Supervisor) Stop(ctx context.Context, name service.Name) error {
	pidPath := s.cfg.PIDFile(name)
	pid, _, err := pidfile.Read(pidPath)
	if err != nil {
		s.log.Info("not running", "service", name)
		return ErrNotRunning
	}
	if !s.alive(pid) {
		s.log.Info("not running, removing stale pid file", "service", name, "pid", pid)
		pidfile.Remove(pidPath)
		return ErrNotRunning
	}

	s.log.Info("stopping", "service", name, "pid", pid)
	_ = s.ctl.Terminate(pid)
	if !s.waitGone(ctx, pid, s.cfg.StopTimeout) {
		s.log.Warn("did not exit in time, sending SIGKILL", "service", name, "pid", pid)
		_ = s.ctl.Kill(pid)
		metrics.IncKill(string(name))
		s.waitGone(ctx, pid, time.Second)
	}
	pidfile.Remove(pidPath)

	s.log.Info("stopped", "service", name, "pid", pid)
	s.record(ctx, history.Event{Type: history.EventStop, Service: string(name), PID: pid})
	metrics.IncStop(string(name))
	metrics.SetRunning(string(name), false)
	return nil
}

// waitGone polls until the pid disappears from the process table or the
// bound elapses. Context cancellation counts as "give up".
func (s *Supervisor) waitGone(ctx context.Context, pid int, bound time.Duration) bool {
	deadline := time.Now().Add(bound)
	for time.Now().Before(deadline) {
		if !s.alive(pid) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.poll):
		}
	}
	return !s.alive(pid)
}

// Restart stops (tolerating "not running"), waits out the restart delay so
// ports and GPU memory release, then starts.
func (s *Supervisor) Restart(ctx context.Context, name service.Name) error {
	if err := s.Stop(ctx, name); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.RestartDelay):
	}
	return s.Start(ctx, name)
}

// Status reports one service without mutating anything. Liveness is resolved
// through a pid-file detector: a missing or stale file reads as stopped and
// is left untouched.
func (s *Supervisor) Status(name service.Name) Status {
	st := Status{
		Service: name,
		PIDFile: s.cfg.PIDFile(name),
		LogFile: s.cfg.LogFile(name),
	}
	var det detector.Detector = detector.PIDFileDetector{Path: st.PIDFile, Prober: s.ctl}
	if ok, _ := det.Alive(); ok {
		if pid, _, err := pidfile.Read(st.PIDFile); err == nil {
			st.Running = true
			st.PID = pid
		}
	}
	return st
}

// Statuses reports all services in launch order.
func (s *Supervisor) Statuses() []Status {
	out := make([]Status, 0, len(service.All()))
	for _, name := range service.All() {
		out = append(out, s.Status(name))
	}
	return out
}

// StartAll starts every service. A failure in one never blocks the others;
// the joined error is returned for callers that want it, with "already
// running" treated as success.
func (s *Supervisor) StartAll(ctx context.Context) error {
	var errs []error
	for _, name := range service.All() {
		if err := s.Start(ctx, name); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopAll stops every service, treating "not running" as success.
func (s *Supervisor) StopAll(ctx context.Context) error {
	var errs []error
	for _, name := range service.All() {
		if err := s.Stop(ctx, name); err != nil && !errors.Is(err, ErrNotRunning) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RestartAll stops everything, waits out the restart delay, then starts.
func (s *Supervisor) RestartAll(ctx context.Context) error {
	stopErr := s.StopAll(ctx)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.RestartDelay):
	}
	return errors.Join(stopErr, s.StartAll(ctx))
}

func (s *Supervisor) record(ctx context.Context, e history.Event) {
	if s.rec != nil {
		s.rec.Record(ctx, e)
	}
}
