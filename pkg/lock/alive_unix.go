//go:build !windows

package lock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processAlive sends signal 0, which checks existence without delivering
// anything. EPERM means the process exists under another user.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
