package interpret

import "encoding/json"

// kimiToolNames collapses the Kimi CLI's tool vocabulary onto the
// canonical set the UI renders. Names outside the table pass through
// unchanged.
var kimiToolNames = map[string]string{
	"WriteFile":     "Write",
	"CreateFile":    "Write",
	"ReadFile":      "Read",
	"EditFile":      "Edit",
	"PatchFile":     "Edit",
	"RunCommand":    "Bash",
	"Bash":          "Bash",
	"Shell":         "Bash",
	"ListDirectory": "Bash",
	"ListDir":       "Bash",
	"DeleteFile":    "Bash",
	"SearchFiles":   "Glob",
	"GlobTool":      "Glob",
	"GrepTool":      "Grep",
	"SearchContent": "Grep",
}

// Kimi interprets the Kimi CLI's role-based stream. Assistant records
// carry either a plain string body or typed blocks (think/text), plus
// optional tool calls whose arguments arrive as a JSON-encoded string.
//
// The stream has no end-of-turn record. Process never returns true;
// the run loop treats process death plus a drain grace period as the
// completion signal. Do not try to infer completion from content.
type Kimi struct {
	sink       Sink
	transcript transcript
}

func NewKimi(sink Sink) *Kimi {
	return &Kimi{sink: sink}
}

func (k *Kimi) Process(line string) bool {
	if trimRecord(line) == "" {
		return false
	}
	msg, ok := decodeRecord(line)
	if !ok {
		k.transcript.appendLine(line)
		k.sink.Chunk(line + "\n")
		return false
	}

	switch stringField(msg, "role") {
	case "assistant":
		k.assistant(msg)
	case "tool":
		k.sink.ToolResult(stringField(msg, "tool_call_id"), stringField(msg, "content"))
	case "error":
		message := stringField(msg, "content")
		if message == "" {
			message = stringField(msg, "message")
		}
		if message == "" {
			message = "unknown error"
		}
		k.sink.Error(message)
	default:
		if text, ok := probeContent(msg); ok && text != "" {
			k.transcript.appendLine(text)
			k.sink.Chunk(text + "\n")
		}
	}
	return false
}

func (k *Kimi) assistant(msg map[string]any) {
	switch content := msg["content"].(type) {
	case string:
		// Plain string body, emitted in --no-thinking mode.
		if content != "" {
			k.transcript.appendLine(content)
			k.sink.Chunk(content + "\n")
		}
	case []any:
		for _, block := range content {
			b, ok := block.(map[string]any)
			if !ok {
				continue
			}
			switch stringField(b, "type") {
			case "think":
				if think := stringField(b, "think"); think != "" {
					k.sink.Thinking(think)
				}
			case "text":
				if text := stringField(b, "text"); text != "" {
					k.transcript.appendLine(text)
					k.sink.Chunk(text + "\n")
				}
			}
		}
	}

	for _, call := range arrayField(msg, "tool_calls") {
		c, ok := call.(map[string]any)
		if !ok {
			continue
		}
		fn := objectField(c, "function")
		if fn == nil {
			continue
		}
		name := stringField(fn, "name")
		if mapped, ok := kimiToolNames[name]; ok {
			name = mapped
		}

		// Arguments are a JSON object encoded as a string; decode the
		// outer string and pass the object through opaquely.
		input := json.RawMessage("{}")
		if args := stringField(fn, "arguments"); args != "" && json.Valid([]byte(args)) {
			input = json.RawMessage(args)
		}
		k.sink.ToolUse(stringField(c, "id"), name, input)
	}
}

func (k *Kimi) Transcript() string {
	return k.transcript.String()
}

// Usage is never reported by this CLI.
func (k *Kimi) Usage() *Usage {
	return nil
}
