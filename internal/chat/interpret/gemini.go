package interpret

// Gemini interprets the Gemini CLI's stream-json output. The CLI echoes
// the user's prompt back as a leading "user" record before its real
// response; that echo is discarded rather than shown as assistant text.
// A final "result" record carries the whole answer and is used as a
// fallback only when no incremental text arrived, to avoid duplicates.
type Gemini struct {
	sink       Sink
	transcript transcript
	usage      *Usage
}

func NewGemini(sink Sink) *Gemini {
	return &Gemini{sink: sink}
}

func (g *Gemini) Process(line string) bool {
	if trimRecord(line) == "" {
		return false
	}
	msg, ok := decodeRecord(line)
	if !ok {
		g.transcript.appendLine(line)
		g.sink.Chunk(line + "\n")
		return false
	}

	switch stringField(msg, "type") {
	case "user":
		// Echo of our own prompt.
	case "message":
		if content := stringField(msg, "content"); content != "" {
			g.transcript.append(content)
			g.sink.Chunk(content)
		}
	case "assistant":
		g.assistant(objectField(msg, "message"))
	case "result":
		if usage := objectField(msg, "usage"); usage != nil {
			g.usage = parseUsage(usage)
		}
		if result := stringField(msg, "result"); result != "" && g.transcript.Empty() {
			g.transcript.append(result)
			g.sink.Chunk(result)
		}
		return true
	case "tool_result", "function_response":
		id := stringField(msg, "tool_use_id")
		if id == "" {
			id = stringField(msg, "call_id")
		}
		output := stringField(msg, "output")
		if output == "" {
			output = stringField(msg, "response")
		}
		g.sink.ToolResult(id, output)
	case "error":
		if e := stringField(msg, "error"); e != "" {
			g.sink.Error(e)
		}
	default:
		if text, ok := probeContent(msg); ok && text != "" {
			g.transcript.append(text)
			g.sink.Chunk(text)
		}
	}
	return false
}

func (g *Gemini) assistant(message map[string]any) {
	if message == nil {
		return
	}
	for _, block := range arrayField(message, "content") {
		b, ok := block.(map[string]any)
		if !ok {
			continue
		}
		switch stringField(b, "type") {
		case "text":
			if text := stringField(b, "text"); text != "" {
				g.transcript.append(text)
				g.sink.Chunk(text)
			}
		case "thinking":
			if text := stringField(b, "thinking"); text != "" {
				g.sink.Thinking(text)
			}
		case "tool_use", "function_call":
			id := stringField(b, "id")
			if id == "" {
				id = stringField(b, "call_id")
			}
			input := b["input"]
			if input == nil {
				input = b["args"]
			}
			g.sink.ToolUse(id, stringField(b, "name"), rawField(input))
		}
	}
}

func (g *Gemini) Transcript() string {
	return g.transcript.String()
}

func (g *Gemini) Usage() *Usage {
	return g.usage
}
