//go:build windows

package supervisor

import (
	"os"
	"os/exec"

	"github.com/intimeai/miroctl/internal/detector"
)

// osController on Windows has no process groups or SIGTERM; both Terminate
// and Kill forcibly end the process.
type osController struct{}

func (osController) Alive(pid int) bool { return detector.OSProber{}.Alive(pid) }

func (osController) Terminate(pid int) error { return killPid(pid) }

func (osController) Kill(pid int) error { return killPid(pid) }

func killPid(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func setSysProcAttr(_ *exec.Cmd) {}
