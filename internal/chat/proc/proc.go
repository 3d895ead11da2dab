// Package proc answers whether a detached process is still running.
//
// The processes we track are spawned through a shell and reparented to
// init, so os.Process.Wait is not an option. On unix we probe with
// signal 0 instead; on Windows there is no equivalent cheap probe and
// callers fall back to activity and timeout heuristics.
package proc

import "errors"

// ErrUnsupported is returned by Alive on platforms without a liveness probe.
var ErrUnsupported = errors.New("process liveness probe not supported on this platform")

// AliveFunc matches the signature of Alive so callers can inject fakes.
type AliveFunc func(pid int) (bool, error)
