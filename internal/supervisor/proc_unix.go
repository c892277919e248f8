//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"

	"github.com/intimeai/miroctl/internal/detector"
)

// osController signals real processes. Children are launched in their own
// process group, so signals target the group first and fall back to the pid.
type osController struct{}

func (osController) Alive(pid int) bool { return detector.OSProber{}.Alive(pid) }

func (osController) Terminate(pid int) error { return signalGroup(pid, syscall.SIGTERM) }

func (osController) Kill(pid int) error { return signalGroup(pid, syscall.SIGKILL) }

func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err == nil {
		return nil
	}
	return syscall.Kill(pid, sig)
}

func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
