// Package events provides event types and utilities for the Jean event system.
package events

// Event types for the chat stream. One subject per session is derived from
// these bases so the UI can subscribe to a single session or to everything.
const (
	ChatChunk      = "chat.chunk"       // Incremental assistant text
	ChatThinking   = "chat.thinking"    // Reasoning/thinking span
	ChatToolUse    = "chat.tool_use"    // Tool invocation started
	ChatToolResult = "chat.tool_result" // Tool result received
	ChatError      = "chat.error"       // Run or protocol error
	ChatDone       = "chat.done"        // Terminal run notification
)

// Event types for run lifecycle bookkeeping.
const (
	RunStarted   = "run.started"
	RunCancelled = "run.cancelled"
)

// BuildChatSubject creates a chat subject of the given base for a session,
// e.g. BuildChatSubject(ChatChunk, "s1") -> "chat.chunk.s1".
func BuildChatSubject(base, sessionID string) string {
	return base + "." + sessionID
}

// BuildChatWildcardSubject creates a wildcard subscription for one chat event
// type across all sessions.
func BuildChatWildcardSubject(base string) string {
	return base + ".*"
}

// ChatStreamWildcard matches every chat event for every session. Used by the
// WebSocket gateway to forward the whole stream to the UI.
const ChatStreamWildcard = "chat.>"
