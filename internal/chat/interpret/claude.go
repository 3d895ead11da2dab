package interpret

// Claude interprets the Claude CLI's stream-json output: "assistant"
// records carrying typed content blocks (text, thinking, tool_use),
// "user" records carrying tool results, and a final "result" record
// that closes the turn. Depending on configuration the CLI may emit no
// incremental blocks at all and deliver the whole answer only in the
// result record, so that text is used as a fallback when the transcript
// is still empty.
type Claude struct {
	sink       Sink
	transcript transcript
	usage      *Usage
}

func NewClaude(sink Sink) *Claude {
	return &Claude{sink: sink}
}

func (c *Claude) Process(line string) bool {
	if trimRecord(line) == "" {
		return false
	}
	msg, ok := decodeRecord(line)
	if !ok {
		c.transcript.appendLine(line)
		c.sink.Chunk(line + "\n")
		return false
	}

	switch stringField(msg, "type") {
	case "system":
		// Session bookkeeping (init record, hook output). Nothing to show.
	case "assistant":
		c.assistant(objectField(msg, "message"))
	case "user":
		c.toolResults(objectField(msg, "message"))
	case "result":
		if usage := objectField(msg, "usage"); usage != nil {
			c.usage = parseUsage(usage)
		}
		if isError, _ := msg["is_error"].(bool); isError {
			message := stringField(msg, "result")
			if message == "" {
				message = "run failed"
			}
			c.sink.Error(message)
			return true
		}
		if result := stringField(msg, "result"); result != "" && c.transcript.Empty() {
			c.transcript.append(result)
			c.sink.Chunk(result)
		}
		return true
	case "error":
		if e := stringField(msg, "error"); e != "" {
			c.sink.Error(e)
		} else if e := stringField(msg, "message"); e != "" {
			c.sink.Error(e)
		}
	default:
		if text, ok := probeContent(msg); ok && text != "" {
			c.transcript.append(text)
			c.sink.Chunk(text)
		}
	}
	return false
}

func (c *Claude) assistant(message map[string]any) {
	if message == nil {
		return
	}
	if usage := objectField(message, "usage"); usage != nil {
		c.usage = parseUsage(usage)
	}
	for _, block := range arrayField(message, "content") {
		b, ok := block.(map[string]any)
		if !ok {
			continue
		}
		switch stringField(b, "type") {
		case "text":
			if text := stringField(b, "text"); text != "" {
				c.transcript.append(text)
				c.sink.Chunk(text)
			}
		case "thinking":
			if text := stringField(b, "thinking"); text != "" {
				c.sink.Thinking(text)
			}
		case "tool_use":
			c.sink.ToolUse(stringField(b, "id"), stringField(b, "name"), rawField(b["input"]))
		}
	}
}

// toolResults extracts tool_result blocks from an echoed user record.
// The block content is either a plain string or nested text blocks.
func (c *Claude) toolResults(message map[string]any) {
	if message == nil {
		return
	}
	for _, block := range arrayField(message, "content") {
		b, ok := block.(map[string]any)
		if !ok || stringField(b, "type") != "tool_result" {
			continue
		}
		output := ""
		switch content := b["content"].(type) {
		case string:
			output = content
		case []any:
			for _, inner := range content {
				if ib, ok := inner.(map[string]any); ok && stringField(ib, "type") == "text" {
					output += stringField(ib, "text")
				}
			}
		}
		c.sink.ToolResult(stringField(b, "tool_use_id"), output)
	}
}

func (c *Claude) Transcript() string {
	return c.transcript.String()
}

func (c *Claude) Usage() *Usage {
	return c.usage
}
