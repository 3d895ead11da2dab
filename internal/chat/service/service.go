// Package service exposes the chat operations the API layer calls:
// start a turn, cancel it, list what is running. It owns the glue
// between vendor catalog, binary discovery, the run loop, and the
// event bus.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ninedotdev/jean/internal/agent/agents"
	"github.com/ninedotdev/jean/internal/agent/discovery"
	"github.com/ninedotdev/jean/internal/chat/proc"
	"github.com/ninedotdev/jean/internal/chat/registry"
	"github.com/ninedotdev/jean/internal/chat/runner"
	"github.com/ninedotdev/jean/internal/chat/spawn"
	"github.com/ninedotdev/jean/internal/chat/tail"
	"github.com/ninedotdev/jean/internal/common/config"
	apperrors "github.com/ninedotdev/jean/internal/common/errors"
	"github.com/ninedotdev/jean/internal/common/logger"
	"github.com/ninedotdev/jean/internal/events"
	"github.com/ninedotdev/jean/internal/events/bus"
)

// StartTurnRequest describes one chat turn to execute.
type StartTurnRequest struct {
	SessionID     string
	WorktreeID    string
	Vendor        string
	Prompt        string
	Model         string
	ExecutionMode string
	ThinkingLevel string
	WorkingDir    string
}

// TurnHandle identifies a started run.
type TurnHandle struct {
	SessionID string `json:"session_id"`
	Vendor    string `json:"vendor"`
	PID       int    `json:"pid,omitempty"`
}

// RunInfo describes one live run.
type RunInfo struct {
	SessionID string `json:"session_id"`
	PID       int    `json:"pid"`
}

// Service coordinates chat runs. One instance serves all sessions.
type Service struct {
	cfg      config.ChatConfig
	resolver *discovery.Resolver
	bus      bus.EventBus
	registry *registry.Registry
	runner   *runner.Runner
	launcher spawn.Launcher
	log      *logger.Logger
	wg       sync.WaitGroup
}

func New(cfg config.ChatConfig, resolver *discovery.Resolver, eventBus bus.EventBus, log *logger.Logger) *Service {
	reg := registry.New()
	policy := runner.Policy{
		PollInterval:           cfg.PollInterval(),
		StartupTimeout:         cfg.StartupTimeout(),
		DeadProcessGracePeriod: cfg.DeadProcessGracePeriod(),
	}
	return &Service{
		cfg:      cfg,
		resolver: resolver,
		bus:      eventBus,
		registry: reg,
		runner:   runner.New(reg, policy, log),
		launcher: spawn.NewPlatformLauncher(log),
		log:      log.WithFields(zap.String("component", "chat_service")),
	}
}

// StartTurn validates the request, spawns the vendor CLI, and streams
// its output in a background goroutine. It returns as soon as the run
// is set up; progress is delivered through the event bus.
func (s *Service) StartTurn(ctx context.Context, req StartTurnRequest) (*TurnHandle, error) {
	agent, ok := agents.Get(req.Vendor)
	if !ok {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown vendor '%s'", req.Vendor))
	}
	if req.Prompt == "" {
		return nil, apperrors.BadRequest("prompt is required")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	if s.registry.IsRunning(sessionID) {
		return nil, apperrors.Conflict(fmt.Sprintf("session '%s' already has a running turn", sessionID))
	}

	binary, err := s.resolver.Resolve(agent)
	if err != nil {
		if errors.Is(err, discovery.ErrNotInstalled) {
			return nil, apperrors.NotInstalled(req.Vendor)
		}
		return nil, apperrors.Wrap(err, "failed to resolve CLI binary")
	}

	if err := os.MkdirAll(s.cfg.RunDir, 0o755); err != nil {
		return nil, apperrors.InternalError("failed to create run directory", err)
	}

	workingDir := req.WorkingDir
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	}

	opts := agents.CommandOptions{
		Prompt:        req.Prompt,
		Model:         req.Model,
		ExecutionMode: req.ExecutionMode,
		ThinkingLevel: req.ThinkingLevel,
		WorkingDir:    workingDir,
	}
	policy := agent.LaunchPolicy()

	launch := spawn.Request{
		BinaryPath: binary,
		Args:       agent.BuildArgs(opts),
		WorkingDir: workingDir,
		OutputPath: s.outputPath(sessionID),
		Nohup:      policy.UseNohup,
	}
	if policy.SplitStderr {
		launch.StderrPath = s.stderrPath(sessionID)
	}
	if policy.PromptViaStdin {
		inputPath := s.inputPath(sessionID)
		if err := os.WriteFile(inputPath, []byte(agent.BuildPrompt(opts)), 0o600); err != nil {
			return nil, apperrors.InternalError("failed to write input file", err)
		}
		launch.InputPath = inputPath
	}

	sink := newBusSink(s.bus, sessionID, req.WorktreeID, s.log)
	turn := runner.Turn{
		SessionID:   sessionID,
		WorktreeID:  req.WorktreeID,
		Vendor:      req.Vendor,
		Launcher:    s.launcher,
		Launch:      launch,
		TailMode:    tail.AtEnd,
		Interpreter: agent.NewInterpreter(sink),
		Sink:        sink,
	}

	s.publishLifecycle(events.RunStarted, sessionID, req.WorktreeID, req.Vendor)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The run must outlive the originating HTTP request.
		if _, err := s.runner.Run(context.Background(), turn); err != nil {
			s.log.WithSessionID(sessionID).WithError(err).Error("Run failed")
		}
	}()

	s.log.WithSessionID(sessionID).WithVendor(req.Vendor).Info("Turn started")
	return &TurnHandle{SessionID: sessionID, Vendor: req.Vendor}, nil
}

// Cancel terminates the session's running process. The run loop then
// observes the missing registry entry and finishes as cancelled.
func (s *Service) Cancel(sessionID string) error {
	pid, ok := s.registry.PID(sessionID)
	if !ok {
		return apperrors.NotFound("run", sessionID)
	}

	if err := proc.Terminate(pid); err != nil {
		s.log.WithSessionID(sessionID).WithError(err).Warn("Failed to signal process",
			zap.Int("pid", pid))
	}
	s.registry.Unregister(sessionID)
	s.publishLifecycle(events.RunCancelled, sessionID, "", "")

	s.log.WithSessionID(sessionID).Info("Run cancelled", zap.Int("pid", pid))
	return nil
}

// ListRunning returns the sessions with a live CLI process.
func (s *Service) ListRunning() []RunInfo {
	ids := s.registry.ListRunning()
	runs := make([]RunInfo, 0, len(ids))
	for _, id := range ids {
		if pid, ok := s.registry.PID(id); ok {
			runs = append(runs, RunInfo{SessionID: id, PID: pid})
		}
	}
	return runs
}

// IsRunning reports whether the session has a live turn.
func (s *Service) IsRunning(sessionID string) bool {
	return s.registry.IsRunning(sessionID)
}

// Replay re-reads a session's output file from the beginning, pushing
// every recorded event through the bus again. Used when the UI
// reattaches to a session whose run already produced output.
func (s *Service) Replay(sessionID, worktreeID, vendor string) (string, error) {
	agent, ok := agents.Get(vendor)
	if !ok {
		return "", apperrors.BadRequest(fmt.Sprintf("unknown vendor '%s'", vendor))
	}

	outputPath := s.outputPath(sessionID)
	if _, err := os.Stat(outputPath); err != nil {
		return "", apperrors.NotFound("run output", sessionID)
	}

	tailer, err := tail.New(outputPath, tail.FromStart)
	if err != nil {
		return "", apperrors.InternalError("failed to open run output", err)
	}

	sink := newBusSink(s.bus, sessionID, worktreeID, s.log)
	interp := agent.NewInterpreter(sink)
	lines, err := tailer.Poll()
	if err != nil {
		return "", apperrors.InternalError("failed to read run output", err)
	}
	for _, line := range lines {
		if interp.Process(line) {
			break
		}
	}
	return interp.Transcript(), nil
}

// Stop waits for in-flight runs to reach a terminal state, up to the
// context deadline. The detached processes themselves keep going.
func (s *Service) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) publishLifecycle(eventType, sessionID, worktreeID, vendor string) {
	data := map[string]interface{}{"session_id": sessionID}
	if worktreeID != "" {
		data["worktree_id"] = worktreeID
	}
	if vendor != "" {
		data["vendor"] = vendor
	}
	event := bus.NewEvent(eventType, "jean-backend", data)
	if err := s.bus.Publish(context.Background(), eventType+"."+sessionID, event); err != nil {
		s.log.WithError(err).Warn("Failed to publish lifecycle event")
	}
}

func (s *Service) outputPath(sessionID string) string {
	return filepath.Join(s.cfg.RunDir, sessionID+".jsonl")
}

func (s *Service) stderrPath(sessionID string) string {
	return filepath.Join(s.cfg.RunDir, sessionID+".stderr.log")
}

func (s *Service) inputPath(sessionID string) string {
	return filepath.Join(s.cfg.RunDir, sessionID+".input")
}
