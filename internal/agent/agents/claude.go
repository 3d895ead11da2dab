package agents

import "github.com/ninedotdev/jean/internal/chat/interpret"

// ClaudeAgent invokes the Claude CLI. The prompt must be piped to
// stdin: with --print the binary only reads the prompt from a pipe,
// not from argv or a file redirect. Stdout and stderr share the output
// file; the stream-json records and any stderr noise are disambiguated
// line by line.
type ClaudeAgent struct{}

func (a *ClaudeAgent) ID() string          { return "claude" }
func (a *ClaudeAgent) DisplayName() string { return "Claude Code" }

func (a *ClaudeAgent) BinaryNames() []string {
	return []string{"claude"}
}

func (a *ClaudeAgent) InstallHint() string {
	return "npm install -g @anthropic-ai/claude-code"
}

func (a *ClaudeAgent) LaunchPolicy() LaunchPolicy {
	return LaunchPolicy{
		UseNohup:       true,
		PromptViaStdin: true,
	}
}

func (a *ClaudeAgent) BuildArgs(opts CommandOptions) []string {
	args := []string{"--print", "--verbose", "--output-format", "stream-json"}

	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}

	switch opts.ExecutionMode {
	case ModePlan:
		args = append(args, "--permission-mode", "plan")
	case ModeYolo:
		args = append(args, "--dangerously-skip-permissions")
	default:
		args = append(args, "--permission-mode", "acceptEdits")
	}
	return args
}

// BuildPrompt appends the extended-thinking trigger word. This CLI has
// no flag for thinking; the keywords in the prompt control the budget.
func (a *ClaudeAgent) BuildPrompt(opts CommandOptions) string {
	switch opts.ThinkingLevel {
	case ThinkingThink, ThinkingMegathink, ThinkingUltrathink:
		return opts.Prompt + "\n\n" + opts.ThinkingLevel
	default:
		return opts.Prompt
	}
}

func (a *ClaudeAgent) NewInterpreter(sink interpret.Sink) interpret.Interpreter {
	return interpret.NewClaude(sink)
}
