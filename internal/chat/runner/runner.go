// Package runner drives one chat turn end to end: spawn the vendor CLI
// detached, tail its output file, feed records to the vendor
// interpreter, and decide when the turn is over.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ninedotdev/jean/internal/chat/interpret"
	"github.com/ninedotdev/jean/internal/chat/proc"
	"github.com/ninedotdev/jean/internal/chat/registry"
	"github.com/ninedotdev/jean/internal/chat/spawn"
	"github.com/ninedotdev/jean/internal/chat/tail"
	apperrors "github.com/ninedotdev/jean/internal/common/errors"
	"github.com/ninedotdev/jean/internal/common/logger"
)

// Status is the terminal state of a run.
type Status string

const (
	// StatusCompleted means the interpreter saw its completion signal
	// or the process exited and its output was drained.
	StatusCompleted Status = "completed"
	// StatusCancelled means the session was externally unregistered
	// mid-run.
	StatusCancelled Status = "cancelled"
	// StatusTimedOut means no output ever appeared within the startup
	// timeout.
	StatusTimedOut Status = "timed_out"
	// StatusFailed means the launch itself failed.
	StatusFailed Status = "failed"
)

// Policy holds the timing knobs of the streaming loop. The grace
// period is a heuristic: a process that buffers its final output and
// exits slowly can lose a record to a grace period that is too short,
// so it is configurable rather than hardcoded.
type Policy struct {
	PollInterval           time.Duration
	StartupTimeout         time.Duration
	DeadProcessGracePeriod time.Duration
}

// Turn describes one run: what to launch and how to read it.
type Turn struct {
	SessionID   string
	WorktreeID  string
	Vendor      string
	Launcher    spawn.Launcher
	Launch      spawn.Request
	TailMode    tail.Mode
	Interpreter interpret.Interpreter
	Sink        interpret.Sink
}

// Result reports how a run ended.
type Result struct {
	Status     Status
	Transcript string
	Usage      *interpret.Usage
	PID        int
}

// Runner executes turns. It owns no per-turn state; one Runner serves
// all sessions.
type Runner struct {
	registry *registry.Registry
	policy   Policy
	alive    proc.AliveFunc
	log      *logger.Logger
}

func New(reg *registry.Registry, policy Policy, log *logger.Logger) *Runner {
	return NewWithProbe(reg, policy, proc.Alive, log)
}

func NewWithProbe(reg *registry.Registry, policy Policy, alive proc.AliveFunc, log *logger.Logger) *Runner {
	return &Runner{
		registry: reg,
		policy:   policy,
		alive:    alive,
		log:      log.WithFields(zap.String("component", "runner")),
	}
}

// Run executes one turn to a terminal state. The done notification is
// delivered to the sink exactly once, whatever path ends the run.
func (r *Runner) Run(ctx context.Context, turn Turn) (*Result, error) {
	log := r.log.WithSessionID(turn.SessionID).WithVendor(turn.Vendor)

	result := &Result{Status: StatusFailed}
	doneSent := false
	finish := func(status Status) {
		result.Status = status
		result.Transcript = turn.Interpreter.Transcript()
		result.Usage = turn.Interpreter.Usage()
		if !doneSent {
			doneSent = true
			turn.Sink.Done(result.Transcript, status == StatusCompleted)
		}
	}

	// The tailer may open the output file before the shell's append
	// redirection creates it, so it has to exist up front.
	if err := ensureFile(turn.Launch.OutputPath); err != nil {
		finish(StatusFailed)
		return result, err
	}
	if turn.Launch.StderrPath != "" {
		if err := ensureFile(turn.Launch.StderrPath); err != nil {
			finish(StatusFailed)
			return result, err
		}
	}

	pid, err := turn.Launcher.Launch(ctx, turn.Launch)
	if err != nil {
		appErr := apperrors.LaunchFailed(turn.Vendor, err)
		log.WithError(err).Error("Failed to launch CLI")
		turn.Sink.Error(appErr.Error())
		finish(StatusFailed)
		return result, appErr
	}
	result.PID = pid
	log.Info("CLI launched", zap.Int("pid", pid))

	if err := r.registry.Register(turn.SessionID, pid); err != nil {
		log.WithError(err).Error("Failed to register run")
		turn.Sink.Error(err.Error())
		finish(StatusFailed)
		return result, err
	}
	defer r.registry.Unregister(turn.SessionID)

	tailer, err := tail.New(turn.Launch.OutputPath, turn.TailMode)
	if err != nil {
		turn.Sink.Error(fmt.Sprintf("failed to tail output: %v", err))
		finish(StatusFailed)
		return result, err
	}

	status := r.stream(ctx, log, turn, tailer, pid)
	finish(status)
	log.Info("Run finished",
		zap.String("status", string(status)),
		zap.Int("transcript_len", len(result.Transcript)))
	return result, nil
}

// stream is the poll cycle. Each iteration checks cancellation, drains
// new output into the interpreter, then applies the liveness and
// startup-timeout policies.
func (r *Runner) stream(ctx context.Context, log *logger.Logger, turn Turn, tailer *tail.Tailer, pid int) Status {
	start := time.Now()
	lastOutput := start
	gotOutput := false

	ticker := time.NewTicker(r.policy.PollInterval)
	defer ticker.Stop()

	for {
		if !r.registry.IsRegistered(turn.SessionID) {
			log.Info("Run cancelled externally")
			return StatusCancelled
		}

		lines, err := tailer.Poll()
		if err != nil {
			// One bad poll is not fatal; the next cycle retries.
			log.WithError(err).Warn("Tailer poll failed")
		}
		if len(lines) > 0 {
			gotOutput = true
			lastOutput = time.Now()
		}
		for _, line := range lines {
			if turn.Interpreter.Process(line) {
				return StatusCompleted
			}
		}

		alive, aliveErr := r.alive(pid)
		if aliveErr != nil {
			if errors.Is(aliveErr, proc.ErrUnsupported) {
				// No direct probe on this platform; activity and
				// timeout heuristics are all we have.
				alive = true
			} else {
				log.WithError(aliveErr).Warn("Liveness check failed, assuming process dead")
				alive = false
			}
		}
		if !alive && time.Since(lastOutput) > r.policy.DeadProcessGracePeriod {
			r.drainRemaining(turn, tailer)
			log.Debug("Process dead and output drained", zap.Int("pid", pid))
			return StatusCompleted
		}

		if !gotOutput && time.Since(start) > r.policy.StartupTimeout {
			appErr := apperrors.StartupTimeout(turn.Vendor, readTail(turn.Launch.StderrPath))
			log.Error("Startup timeout", zap.String("detail", appErr.Message))
			turn.Sink.Error(appErr.Message)
			return StatusTimedOut
		}

		select {
		case <-ctx.Done():
			log.Info("Run context cancelled")
			return StatusCancelled
		case <-ticker.C:
		}
	}
}

// drainRemaining gives records written between the last poll and the
// death decision one final chance to be interpreted.
func (r *Runner) drainRemaining(turn Turn, tailer *tail.Tailer) {
	lines, err := tailer.Poll()
	if err != nil {
		return
	}
	for _, line := range lines {
		if turn.Interpreter.Process(line) {
			return
		}
	}
}

func ensureFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f.Close()
}

// readTail returns up to the last few hundred bytes of a diagnostics
// file, enough for an error message without dumping a whole log.
func readTail(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	s := strings.TrimSpace(string(data))
	const limit = 512
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}
