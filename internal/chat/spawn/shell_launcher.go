package spawn

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ninedotdev/jean/internal/chat/shell"
	"github.com/ninedotdev/jean/internal/common/logger"
)

// ShellLauncher backgrounds the CLI through a POSIX shell:
//
//	[cat input |] [K='v' ...] [nohup] binary args >> output [2>> stderr | 2>&1] & echo $!
//
// The shell exits as soon as the background job is forked; a clean exit
// plus a pid on stdout is the launch-succeeded signal. Environment
// assignments go after the pipe so they apply to the CLI, not to cat.
type ShellLauncher struct {
	log *logger.Logger
}

func NewShellLauncher(log *logger.Logger) *ShellLauncher {
	return &ShellLauncher{
		log: log.WithFields(zap.String("component", "shell_launcher")),
	}
}

func buildShellCommand(req Request) string {
	var b strings.Builder

	if req.InputPath != "" {
		b.WriteString("cat ")
		b.WriteString(shell.Quote(req.InputPath))
		b.WriteString(" | ")
	}
	if env := envAssignments(req.Env); env != "" {
		b.WriteString(env)
		b.WriteByte(' ')
	}
	if req.Nohup {
		b.WriteString("nohup ")
	}
	b.WriteString(shell.Quote(req.BinaryPath))
	for _, arg := range req.Args {
		b.WriteByte(' ')
		b.WriteString(shell.Quote(arg))
	}
	b.WriteString(" >> ")
	b.WriteString(shell.Quote(req.OutputPath))
	if req.StderrPath != "" {
		b.WriteString(" 2>> ")
		b.WriteString(shell.Quote(req.StderrPath))
	} else {
		b.WriteString(" 2>&1")
	}
	b.WriteString(" & echo $!")
	return b.String()
}

func (l *ShellLauncher) Launch(ctx context.Context, req Request) (int, error) {
	if err := validate(req); err != nil {
		return 0, err
	}

	shellCmd := buildShellCommand(req)
	l.log.Debug("Spawning detached CLI",
		zap.String("binary", req.BinaryPath),
		zap.String("working_dir", req.WorkingDir))

	cmd := exec.CommandContext(ctx, "sh", "-c", shellCmd)
	cmd.Dir = req.WorkingDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return 0, fmt.Errorf("shell launch failed: %w: %s", err, msg)
		}
		return 0, fmt.Errorf("shell launch failed: %w", err)
	}

	// First stdout line is `echo $!`.
	pidLine, _, _ := strings.Cut(stdout.String(), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPIDParse, strings.TrimSpace(stdout.String()))
	}

	l.log.Debug("Detached CLI spawned", zap.Int("pid", pid))
	return pid, nil
}
