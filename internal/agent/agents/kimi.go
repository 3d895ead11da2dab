package agents

import "github.com/ninedotdev/jean/internal/chat/interpret"

// KimiAgent invokes the Kimi CLI. The binary does not behave under
// nohup, so it runs plain-backgrounded; the backend staying up during
// the turn is what keeps it alive. Thinking levels map onto the CLI's
// own mode ladder, from instant answers up to an agent loop with
// unlimited iterations.
type KimiAgent struct{}

func (a *KimiAgent) ID() string          { return "kimi" }
func (a *KimiAgent) DisplayName() string { return "Kimi" }

func (a *KimiAgent) BinaryNames() []string {
	return []string{"kimi"}
}

func (a *KimiAgent) InstallHint() string {
	return "pip install kimi-cli"
}

func (a *KimiAgent) LaunchPolicy() LaunchPolicy {
	return LaunchPolicy{
		UseNohup:    false,
		SplitStderr: true,
	}
}

func (a *KimiAgent) BuildArgs(opts CommandOptions) []string {
	args := []string{"--print", "--output-format", "stream-json"}

	if opts.WorkingDir != "" {
		args = append(args, "-w", opts.WorkingDir)
	}
	if opts.Model != "" {
		args = append(args, "-m", opts.Model)
	}

	switch opts.ThinkingLevel {
	case ThinkingOff:
		args = append(args, "--no-thinking")
	case ThinkingThink:
		args = append(args, "--thinking")
	case ThinkingMegathink:
		args = append(args, "--thinking", "--agent", "okabe")
	case ThinkingUltrathink:
		args = append(args, "--thinking", "--agent", "okabe", "--max-ralph-iterations", "-1")
	}

	// No sandbox distinction: plan runs like build, with the prompt
	// expected to keep the model read-only.

	args = append(args, "-p", opts.Prompt)
	return args
}

func (a *KimiAgent) BuildPrompt(opts CommandOptions) string {
	return opts.Prompt
}

func (a *KimiAgent) NewInterpreter(sink interpret.Sink) interpret.Interpreter {
	return interpret.NewKimi(sink)
}
