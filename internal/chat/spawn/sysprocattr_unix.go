//go:build unix

package spawn

import "syscall"

// detachedSysProcAttr puts the child in its own session, so it has no
// controlling terminal and never receives our SIGHUP.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
