package interpret

import "encoding/json"

// recordingSink captures every event for assertions.
type recordingSink struct {
	chunks      []string
	thinking    []string
	toolUses    []recordedToolUse
	toolResults []recordedToolResult
	errors      []string
	done        []recordedDone
}

type recordedToolUse struct {
	id    string
	name  string
	input json.RawMessage
}

type recordedToolResult struct {
	toolUseID string
	output    string
}

type recordedDone struct {
	transcript string
	success    bool
}

func (s *recordingSink) Chunk(content string)    { s.chunks = append(s.chunks, content) }
func (s *recordingSink) Thinking(content string) { s.thinking = append(s.thinking, content) }

func (s *recordingSink) ToolUse(id, name string, input json.RawMessage) {
	s.toolUses = append(s.toolUses, recordedToolUse{id: id, name: name, input: input})
}

func (s *recordingSink) ToolResult(toolUseID, output string) {
	s.toolResults = append(s.toolResults, recordedToolResult{toolUseID: toolUseID, output: output})
}

func (s *recordingSink) Error(message string) { s.errors = append(s.errors, message) }

func (s *recordingSink) Done(transcript string, success bool) {
	s.done = append(s.done, recordedDone{transcript: transcript, success: success})
}
