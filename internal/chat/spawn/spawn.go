// Package spawn starts vendor CLI processes detached from the backend,
// with output redirected to files another component tails. Two
// strategies exist: backgrounding through a POSIX shell (the default,
// survives backend exit via nohup) and a native spawn for platforms or
// binaries that cannot go through the shell construct.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/ninedotdev/jean/internal/chat/shell"
	"github.com/ninedotdev/jean/internal/common/logger"
)

// ErrPIDParse means the shell ran but its stdout did not contain a
// parsable pid from `echo $!`. This is distinct from a spawn failure:
// the backgrounding construct itself is broken.
var ErrPIDParse = errors.New("could not parse pid from shell output")

// Request describes one detached CLI launch.
type Request struct {
	// BinaryPath is the absolute path to the CLI binary.
	BinaryPath string
	// Args is the argument list, excluding the binary name.
	Args []string
	// WorkingDir is the directory the CLI runs in.
	WorkingDir string
	// OutputPath receives stdout, opened in append mode.
	OutputPath string
	// StderrPath, when set, receives stderr separately; when empty,
	// stderr is merged into OutputPath.
	StderrPath string
	// InputPath, when set, is piped to the CLI's stdin. Some CLIs only
	// accept the prompt through a pipe, not through argv or a file
	// redirect.
	InputPath string
	// Env holds extra environment variables for the CLI.
	Env map[string]string
	// Nohup controls whether the shell strategy wraps the binary in
	// nohup. Most CLIs want it; at least one misbehaves under nohup
	// and runs plain-backgrounded instead.
	Nohup bool
}

// Launcher starts a detached process and returns its pid.
type Launcher interface {
	Launch(ctx context.Context, req Request) (int, error)
}

// NewPlatformLauncher picks the strategy the current platform can run:
// the shell construct needs a POSIX sh, so Windows gets the native
// spawn with its own detachment flags.
func NewPlatformLauncher(log *logger.Logger) Launcher {
	if runtime.GOOS == "windows" {
		return NewNativeLauncher(log)
	}
	return NewShellLauncher(log)
}

// validate checks what every strategy needs before touching the OS.
// A missing binary is caught here so the caller gets a clean error
// instead of shell noise.
func validate(req Request) error {
	if req.BinaryPath == "" {
		return errors.New("binary path is required")
	}
	if req.OutputPath == "" {
		return errors.New("output path is required")
	}
	if _, err := os.Stat(req.BinaryPath); err != nil {
		return fmt.Errorf("binary not found at %s: %w", req.BinaryPath, err)
	}
	return nil
}

// envAssignments renders K='v' pairs in a stable order.
func envAssignments(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(shell.Quote(env[k]))
	}
	return b.String()
}
