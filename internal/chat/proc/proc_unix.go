//go:build unix

package proc

import (
	"errors"
	"syscall"
)

// Alive reports whether a process with the given pid exists. It sends
// signal 0, which performs permission and existence checks without
// delivering anything. EPERM means the process exists but belongs to
// another user, so it still counts as alive.
func Alive(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, syscall.EPERM) {
		return true, nil
	}
	if errors.Is(err, syscall.ESRCH) {
		return false, nil
	}
	return false, err
}

// Terminate asks the process to exit with SIGTERM. A pid that is
// already gone is not an error.
func Terminate(pid int) error {
	if pid <= 0 {
		return nil
	}
	err := syscall.Kill(pid, syscall.SIGTERM)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
