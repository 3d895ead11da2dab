// Package interpret turns raw CLI output records into a small set of
// normalized chat events. Each supported CLI vendor speaks its own
// stream-JSON dialect; one Interpreter per vendor reduces that dialect
// to the canonical vocabulary the UI understands.
package interpret

import (
	"encoding/json"
	"strings"
)

// Usage carries token accounting reported by a vendor at end of turn.
// Vendors that never report usage leave it nil.
type Usage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheReadTokens     int `json:"cache_read_input_tokens,omitempty"`
	CacheCreationTokens int `json:"cache_creation_input_tokens,omitempty"`
}

// Sink receives normalized events as they are recognized. Implementations
// bind the owning session and worktree; delivery is best effort and must
// never fail the run.
type Sink interface {
	Chunk(content string)
	Thinking(content string)
	ToolUse(id, name string, input json.RawMessage)
	ToolResult(toolUseID, output string)
	Error(message string)
	Done(transcript string, success bool)
}

// Interpreter consumes one raw output line at a time, in file order.
// Process returns true when the vendor's authoritative completion signal
// was seen; vendors without one always return false and rely on process
// death to end the run.
type Interpreter interface {
	Process(line string) bool
	Transcript() string
	Usage() *Usage
}

// NopSink discards everything. Useful in tests and for replays where
// only the transcript matters.
type NopSink struct{}

func (NopSink) Chunk(string)                            {}
func (NopSink) Thinking(string)                         {}
func (NopSink) ToolUse(string, string, json.RawMessage) {}
func (NopSink) ToolResult(string, string)               {}
func (NopSink) Error(string)                            {}
func (NopSink) Done(string, bool)                       {}

// transcript accumulates the assistant's plain text across records.
type transcript struct {
	b strings.Builder
}

func (t *transcript) append(s string) {
	t.b.WriteString(s)
}

func (t *transcript) appendLine(s string) {
	t.b.WriteString(s)
	t.b.WriteByte('\n')
}

func (t *transcript) String() string {
	return t.b.String()
}

func (t *transcript) Empty() bool {
	return t.b.Len() == 0
}

// trimRecord strips surrounding whitespace, including the carriage
// return a CRLF-writing CLI leaves on the record.
func trimRecord(line string) string {
	return strings.TrimSpace(line)
}

// decodeRecord parses a line as a JSON object. The bool result is false
// for anything that is not an object, which callers treat as plain text.
func decodeRecord(line string) (map[string]any, bool) {
	var msg map[string]any
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return nil, false
	}
	return msg, true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func objectField(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

func arrayField(m map[string]any, key string) []any {
	a, _ := m[key].([]any)
	return a
}

func intField(m map[string]any, key string) int {
	f, _ := m[key].(float64)
	return int(f)
}

// probeContent scans the common content-bearing fields vendors fall back
// to when a record's discriminator is unknown.
func probeContent(m map[string]any) (string, bool) {
	for _, key := range []string{"text", "content", "output"} {
		if s, ok := m[key].(string); ok {
			return s, true
		}
	}
	return "", false
}

// rawField re-encodes a decoded value so it can travel as opaque JSON.
func rawField(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// parseUsage reads a vendor usage object, tolerating the two field
// spellings seen in the wild for cached input tokens.
func parseUsage(m map[string]any) *Usage {
	if m == nil {
		return nil
	}
	u := &Usage{
		InputTokens:         intField(m, "input_tokens"),
		OutputTokens:        intField(m, "output_tokens"),
		CacheReadTokens:     intField(m, "cache_read_input_tokens"),
		CacheCreationTokens: intField(m, "cache_creation_input_tokens"),
	}
	if u.CacheReadTokens == 0 {
		u.CacheReadTokens = intField(m, "cached_input_tokens")
	}
	return u
}
