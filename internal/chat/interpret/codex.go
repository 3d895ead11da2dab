package interpret

import "fmt"

// Codex interprets the Codex CLI's experimental JSON stream. The stream
// wraps everything of interest in "item" records (agent messages,
// reasoning, command executions, file changes, remote tool calls) and
// ends a turn with an authoritative turn.completed or turn.failed record.
type Codex struct {
	sink       Sink
	transcript transcript
	usage      *Usage
}

func NewCodex(sink Sink) *Codex {
	return &Codex{sink: sink}
}

func (c *Codex) Process(line string) bool {
	if trimmed := trimRecord(line); trimmed == "" {
		return false
	}
	msg, ok := decodeRecord(line)
	if !ok {
		c.transcript.appendLine(line)
		c.sink.Chunk(line + "\n")
		return false
	}

	switch stringField(msg, "type") {
	case "item.started":
		c.itemStarted(objectField(msg, "item"))
	case "item.updated":
		// Progress updates repeat the item payload; the completed record
		// carries the final state, so these are skipped.
	case "item.completed":
		c.itemCompleted(objectField(msg, "item"))
	case "turn.completed":
		c.usage = parseUsage(objectField(msg, "usage"))
		return true
	case "turn.failed":
		message := "turn failed"
		if errObj := objectField(msg, "error"); errObj != nil {
			if m := stringField(errObj, "message"); m != "" {
				message = m
			}
		}
		c.sink.Error(message)
		return true
	case "error":
		if m := stringField(msg, "message"); m != "" {
			c.sink.Error(m)
		}
	default:
		if text, ok := probeContent(msg); ok && text != "" {
			c.transcript.append(text)
			c.sink.Chunk(text)
		}
	}
	return false
}

// itemStarted surfaces the beginning of a command execution so the UI
// can show a running tool before its output exists.
func (c *Codex) itemStarted(item map[string]any) {
	if item == nil {
		return
	}
	if stringField(item, "type") != "command_execution" {
		return
	}
	input := rawField(map[string]any{"command": stringField(item, "command")})
	c.sink.ToolUse(stringField(item, "id"), "Bash", input)
}

func (c *Codex) itemCompleted(item map[string]any) {
	if item == nil {
		return
	}
	id := stringField(item, "id")

	switch stringField(item, "type") {
	case "agent_message":
		if text := stringField(item, "text"); text != "" {
			c.transcript.append(text)
			c.sink.Chunk(text)
		}
	case "reasoning":
		if text := stringField(item, "text"); text != "" {
			c.sink.Thinking(text)
		}
	case "command_execution":
		output := stringField(item, "aggregated_output")
		if code, ok := item["exit_code"].(float64); ok && code != 0 {
			output = fmt.Sprintf("%s\n(exit code %d)", output, int(code))
		}
		c.sink.ToolResult(id, output)
	case "file_change":
		for _, change := range arrayField(item, "changes") {
			ch, ok := change.(map[string]any)
			if !ok {
				continue
			}
			name := "Write"
			if stringField(ch, "kind") == "update" {
				name = "Edit"
			}
			c.sink.ToolUse(id, name, rawField(map[string]any{
				"file_path": stringField(ch, "path"),
			}))
		}
	case "mcp_tool_call":
		name := stringField(item, "server") + "." + stringField(item, "tool")
		c.sink.ToolUse(id, name, rawField(item["arguments"]))
	default:
		if text, ok := probeContent(item); ok && text != "" {
			c.transcript.append(text)
			c.sink.Chunk(text)
		}
	}
}

func (c *Codex) Transcript() string {
	return c.transcript.String()
}

func (c *Codex) Usage() *Usage {
	return c.usage
}
