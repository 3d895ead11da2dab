package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/ninedotdev/jean/internal/common/logger"
	"github.com/ninedotdev/jean/internal/events"
	"github.com/ninedotdev/jean/internal/events/bus"
)

// busSink forwards normalized chat events onto the event bus, one
// subject per event type per session. Delivery is best effort: publish
// failures are logged and swallowed so a flaky bus cannot kill a run.
type busSink struct {
	bus        bus.EventBus
	sessionID  string
	worktreeID string
	log        *logger.Logger
}

func newBusSink(eventBus bus.EventBus, sessionID, worktreeID string, log *logger.Logger) *busSink {
	return &busSink{
		bus:        eventBus,
		sessionID:  sessionID,
		worktreeID: worktreeID,
		log:        log.WithSessionID(sessionID),
	}
}

func (s *busSink) publish(eventType string, data map[string]interface{}) {
	data["session_id"] = s.sessionID
	data["worktree_id"] = s.worktreeID

	subject := events.BuildChatSubject(eventType, s.sessionID)
	event := bus.NewEvent(eventType, "jean-backend", data)
	if err := s.bus.Publish(context.Background(), subject, event); err != nil {
		s.log.WithError(err).Warn("Failed to publish chat event",
			zap.String("subject", subject))
	}
}

func (s *busSink) Chunk(content string) {
	s.publish(events.ChatChunk, map[string]interface{}{"content": content})
}

func (s *busSink) Thinking(content string) {
	s.publish(events.ChatThinking, map[string]interface{}{"content": content})
}

func (s *busSink) ToolUse(id, name string, input json.RawMessage) {
	var decoded interface{}
	if len(input) > 0 {
		_ = json.Unmarshal(input, &decoded)
	}
	s.publish(events.ChatToolUse, map[string]interface{}{
		"id":    id,
		"name":  name,
		"input": decoded,
	})
}

func (s *busSink) ToolResult(toolUseID, output string) {
	s.publish(events.ChatToolResult, map[string]interface{}{
		"tool_use_id": toolUseID,
		"output":      output,
	})
}

func (s *busSink) Error(message string) {
	s.publish(events.ChatError, map[string]interface{}{"error": message})
}

func (s *busSink) Done(transcript string, success bool) {
	s.publish(events.ChatDone, map[string]interface{}{
		"content": transcript,
		"success": success,
	})
}
