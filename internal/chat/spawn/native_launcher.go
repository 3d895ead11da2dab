package spawn

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/ninedotdev/jean/internal/common/logger"
)

// NativeLauncher spawns the CLI directly with append-opened output
// files and a platform flag that detaches it from our process group.
// Used on platforms without POSIX job control and for binaries that
// misbehave when run through the shell construct.
type NativeLauncher struct {
	log *logger.Logger
}

func NewNativeLauncher(log *logger.Logger) *NativeLauncher {
	return &NativeLauncher{
		log: log.WithFields(zap.String("component", "native_launcher")),
	}
}

func (l *NativeLauncher) Launch(ctx context.Context, req Request) (int, error) {
	if err := validate(req); err != nil {
		return 0, err
	}

	stdout, err := os.OpenFile(req.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open output file: %w", err)
	}
	defer stdout.Close()

	stderr := stdout
	if req.StderrPath != "" {
		stderr, err = os.OpenFile(req.StderrPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, fmt.Errorf("failed to open stderr file: %w", err)
		}
		defer stderr.Close()
	}

	cmd := exec.Command(req.BinaryPath, req.Args...)
	cmd.Dir = req.WorkingDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = detachedSysProcAttr()

	if req.InputPath != "" {
		stdin, err := os.Open(req.InputPath)
		if err != nil {
			return 0, fmt.Errorf("failed to open input file: %w", err)
		}
		defer stdin.Close()
		cmd.Stdin = stdin
	}

	cmd.Env = os.Environ()
	for k, v := range req.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to spawn %s: %w", req.BinaryPath, err)
	}
	pid := cmd.Process.Pid

	// The child is in its own session but still our child; reap it so
	// it does not linger as a zombie after exit. Liveness checks go
	// through the pid, not this handle.
	go func() {
		_ = cmd.Wait()
	}()

	l.log.Debug("Natively spawned CLI",
		zap.String("binary", req.BinaryPath),
		zap.Int("pid", pid))
	return pid, nil
}
