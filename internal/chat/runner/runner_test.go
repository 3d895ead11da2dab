package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninedotdev/jean/internal/chat/interpret"
	"github.com/ninedotdev/jean/internal/chat/registry"
	"github.com/ninedotdev/jean/internal/chat/spawn"
	"github.com/ninedotdev/jean/internal/chat/tail"
	apperrors "github.com/ninedotdev/jean/internal/common/errors"
	"github.com/ninedotdev/jean/internal/common/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:      "error",
		Format:     "console",
		OutputPath: "stdout",
	})
	require.NoError(t, err)
	return log
}

func testPolicy() Policy {
	return Policy{
		PollInterval:           10 * time.Millisecond,
		StartupTimeout:         5 * time.Second,
		DeadProcessGracePeriod: 300 * time.Millisecond,
	}
}

// captureSink records events and counts done deliveries.
type captureSink struct {
	mu        sync.Mutex
	chunks    []string
	errors    []string
	doneN     int
	succeeded bool
}

func (s *captureSink) Chunk(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, content)
}
func (s *captureSink) Thinking(string)                         {}
func (s *captureSink) ToolUse(string, string, json.RawMessage) {}
func (s *captureSink) ToolResult(string, string)               {}

func (s *captureSink) Error(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
}

func (s *captureSink) Done(transcript string, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doneN++
	s.succeeded = success
}

// stubLauncher hands back a fixed pid without starting anything.
type stubLauncher struct {
	pid int
	err error
}

func (l *stubLauncher) Launch(ctx context.Context, req spawn.Request) (int, error) {
	return l.pid, l.err
}

func alwaysAlive(int) (bool, error) { return true, nil }
func neverAlive(int) (bool, error)  { return false, nil }

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "fake-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunCompletesOnInterpreterSignal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	dir := t.TempDir()
	log := newTestLogger(t)
	script := writeScript(t, dir, `echo '{"type":"item.completed","item":{"id":"i0","type":"agent_message","text":"hi"}}'
echo '{"type":"turn.completed","usage":{"input_tokens":5,"output_tokens":3}}'
`)

	reg := registry.New()
	r := New(reg, testPolicy(), log)
	sink := &captureSink{}

	result, err := r.Run(context.Background(), Turn{
		SessionID: "s1",
		Vendor:    "codex",
		Launcher:  spawn.NewShellLauncher(log),
		Launch: spawn.Request{
			BinaryPath: script,
			WorkingDir: dir,
			OutputPath: filepath.Join(dir, "s1.jsonl"),
			StderrPath: filepath.Join(dir, "s1.stderr.log"),
			Nohup:      true,
		},
		TailMode:    tail.AtEnd,
		Interpreter: interpret.NewCodex(sink),
		Sink:        sink,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "hi", result.Transcript)
	require.NotNil(t, result.Usage)
	assert.Equal(t, 5, result.Usage.InputTokens)
	assert.Equal(t, 1, sink.doneN)
	assert.True(t, sink.succeeded)
	assert.False(t, reg.IsRegistered("s1"), "run must unregister on exit")
}

func TestRunCompletesOnProcessDeath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	dir := t.TempDir()
	log := newTestLogger(t)
	// No completion record in this dialect; the process just exits.
	script := writeScript(t, dir, `echo '{"role":"assistant","content":"partial"}'
echo '{"role":"assistant","content":"final"}'
`)

	reg := registry.New()
	r := New(reg, testPolicy(), log)
	sink := &captureSink{}

	result, err := r.Run(context.Background(), Turn{
		SessionID: "s1",
		Vendor:    "kimi",
		Launcher:  spawn.NewShellLauncher(log),
		Launch: spawn.Request{
			BinaryPath: script,
			WorkingDir: dir,
			OutputPath: filepath.Join(dir, "s1.jsonl"),
			StderrPath: filepath.Join(dir, "s1.stderr.log"),
		},
		TailMode:    tail.AtEnd,
		Interpreter: interpret.NewKimi(sink),
		Sink:        sink,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "partial\nfinal\n", result.Transcript)
	assert.Equal(t, 1, sink.doneN)
	assert.True(t, sink.succeeded)
}

func TestRunCancelledExternally(t *testing.T) {
	dir := t.TempDir()
	log := newTestLogger(t)
	reg := registry.NewWithProbe(alwaysAlive)
	r := NewWithProbe(reg, testPolicy(), alwaysAlive, log)
	sink := &captureSink{}

	go func() {
		time.Sleep(100 * time.Millisecond)
		reg.Unregister("s1")
	}()

	result, err := r.Run(context.Background(), Turn{
		SessionID: "s1",
		Vendor:    "claude",
		Launcher:  &stubLauncher{pid: 4242},
		Launch: spawn.Request{
			BinaryPath: writeScript(t, dir, "exit 0\n"),
			OutputPath: filepath.Join(dir, "s1.jsonl"),
		},
		TailMode:    tail.AtEnd,
		Interpreter: interpret.NewClaude(sink),
		Sink:        sink,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, result.Status)
	assert.Equal(t, 1, sink.doneN)
	assert.False(t, sink.succeeded)
}

func TestRunStartupTimeout(t *testing.T) {
	dir := t.TempDir()
	log := newTestLogger(t)
	policy := testPolicy()
	policy.StartupTimeout = 150 * time.Millisecond

	stderrPath := filepath.Join(dir, "s1.stderr.log")
	require.NoError(t, os.WriteFile(stderrPath, []byte("auth token expired\n"), 0o644))

	reg := registry.NewWithProbe(alwaysAlive)
	r := NewWithProbe(reg, policy, alwaysAlive, log)
	sink := &captureSink{}

	result, err := r.Run(context.Background(), Turn{
		SessionID: "s1",
		Vendor:    "gemini",
		Launcher:  &stubLauncher{pid: 4242},
		Launch: spawn.Request{
			BinaryPath: writeScript(t, dir, "exit 0\n"),
			OutputPath: filepath.Join(dir, "s1.jsonl"),
			StderrPath: stderrPath,
		},
		TailMode:    tail.AtEnd,
		Interpreter: interpret.NewGemini(sink),
		Sink:        sink,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusTimedOut, result.Status)
	require.Len(t, sink.errors, 1)
	assert.Contains(t, sink.errors[0], "no output")
	assert.Contains(t, sink.errors[0], "auth token expired")
	assert.Equal(t, 1, sink.doneN)
}

func TestRunLaunchFailure(t *testing.T) {
	dir := t.TempDir()
	log := newTestLogger(t)
	reg := registry.NewWithProbe(alwaysAlive)
	r := NewWithProbe(reg, testPolicy(), alwaysAlive, log)
	sink := &captureSink{}

	launchErr := errors.New("binary not found")
	result, err := r.Run(context.Background(), Turn{
		SessionID: "s1",
		Vendor:    "codex",
		Launcher:  &stubLauncher{err: launchErr},
		Launch: spawn.Request{
			BinaryPath: "/nonexistent",
			OutputPath: filepath.Join(dir, "s1.jsonl"),
		},
		TailMode:    tail.AtEnd,
		Interpreter: interpret.NewCodex(sink),
		Sink:        sink,
	})
	require.ErrorIs(t, err, launchErr)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCodeLaunchFailed, appErr.Code)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 1, sink.doneN, "done must be delivered even on launch failure")
	assert.False(t, sink.succeeded)
	require.Len(t, sink.errors, 1)
}

func TestRunRejectsSecondTurnOnActiveSession(t *testing.T) {
	dir := t.TempDir()
	log := newTestLogger(t)
	reg := registry.NewWithProbe(alwaysAlive)
	require.NoError(t, reg.Register("s1", 999))

	r := NewWithProbe(reg, testPolicy(), alwaysAlive, log)
	sink := &captureSink{}

	result, err := r.Run(context.Background(), Turn{
		SessionID: "s1",
		Vendor:    "codex",
		Launcher:  &stubLauncher{pid: 4242},
		Launch: spawn.Request{
			BinaryPath: writeScript(t, dir, "exit 0\n"),
			OutputPath: filepath.Join(dir, "s1.jsonl"),
		},
		TailMode:    tail.AtEnd,
		Interpreter: interpret.NewCodex(sink),
		Sink:        sink,
	})
	require.ErrorIs(t, err, registry.ErrSessionActive)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestRunContextCancellation(t *testing.T) {
	dir := t.TempDir()
	log := newTestLogger(t)
	reg := registry.NewWithProbe(alwaysAlive)
	r := NewWithProbe(reg, testPolicy(), alwaysAlive, log)
	sink := &captureSink{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	result, err := r.Run(ctx, Turn{
		SessionID: "s1",
		Vendor:    "claude",
		Launcher:  &stubLauncher{pid: 4242},
		Launch: spawn.Request{
			BinaryPath: writeScript(t, dir, "exit 0\n"),
			OutputPath: filepath.Join(dir, "s1.jsonl"),
		},
		TailMode:    tail.AtEnd,
		Interpreter: interpret.NewClaude(sink),
		Sink:        sink,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, result.Status)
}

func TestRunDrainsOutputWrittenJustBeforeDeath(t *testing.T) {
	dir := t.TempDir()
	log := newTestLogger(t)

	outPath := filepath.Join(dir, "s1.jsonl")
	require.NoError(t, os.WriteFile(outPath, nil, 0o644))

	policy := testPolicy()
	policy.DeadProcessGracePeriod = 100 * time.Millisecond

	reg := registry.NewWithProbe(neverAlive)
	r := NewWithProbe(reg, policy, neverAlive, log)
	sink := &captureSink{}

	// The "process" is already dead; its final record lands after the
	// run starts but before the grace period expires.
	go func() {
		time.Sleep(30 * time.Millisecond)
		f, _ := os.OpenFile(outPath, os.O_WRONLY|os.O_APPEND, 0o644)
		defer f.Close()
		_, _ = f.WriteString(`{"role":"assistant","content":"last words"}` + "\n")
	}()

	result, err := r.Run(context.Background(), Turn{
		SessionID: "s1",
		Vendor:    "kimi",
		Launcher:  &stubLauncher{pid: 4242},
		Launch: spawn.Request{
			BinaryPath: writeScript(t, dir, "exit 0\n"),
			OutputPath: outPath,
		},
		TailMode:    tail.AtEnd,
		Interpreter: interpret.NewKimi(sink),
		Sink:        sink,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "last words\n", result.Transcript)
}

// A list query landing inside the grace window must not be mistaken for
// cancellation: the run still drains late output and completes normally.
func TestRunSurvivesListQueryDuringGraceWindow(t *testing.T) {
	dir := t.TempDir()
	log := newTestLogger(t)

	outPath := filepath.Join(dir, "s1.jsonl")
	require.NoError(t, os.WriteFile(outPath, nil, 0o644))

	policy := testPolicy()
	policy.DeadProcessGracePeriod = 300 * time.Millisecond

	reg := registry.NewWithProbe(neverAlive)
	r := NewWithProbe(reg, policy, neverAlive, log)
	sink := &captureSink{}

	go func() {
		time.Sleep(50 * time.Millisecond)
		if got := reg.ListRunning(); len(got) != 0 {
			t.Errorf("dead process listed as running: %v", got)
		}
		time.Sleep(100 * time.Millisecond)
		f, _ := os.OpenFile(outPath, os.O_WRONLY|os.O_APPEND, 0o644)
		defer f.Close()
		_, _ = f.WriteString(`{"role":"assistant","content":"last words"}` + "\n")
	}()

	result, err := r.Run(context.Background(), Turn{
		SessionID: "s1",
		Vendor:    "kimi",
		Launcher:  &stubLauncher{pid: 4242},
		Launch: spawn.Request{
			BinaryPath: writeScript(t, dir, "exit 0\n"),
			OutputPath: outPath,
		},
		TailMode:    tail.AtEnd,
		Interpreter: interpret.NewKimi(sink),
		Sink:        sink,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "last words\n", result.Transcript)
	assert.True(t, sink.succeeded)
}
