//go:build !windows

package detector

import (
	"errors"
	"syscall"
)

// pidAlive returns true if a process with the given pid exists. EPERM means
// the process exists but belongs to another user, which still counts.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
