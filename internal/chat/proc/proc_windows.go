//go:build windows

package proc

import "os"

// Alive is not implemented on Windows. Callers treat ErrUnsupported as
// "unknown" and rely on output activity and startup timeouts instead.
func Alive(pid int) (bool, error) {
	return false, ErrUnsupported
}

// Terminate kills the process via the os package, which maps to
// TerminateProcess on Windows.
func Terminate(pid int) error {
	if pid <= 0 {
		return nil
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return p.Kill()
}
