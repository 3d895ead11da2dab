package agents

import "github.com/ninedotdev/jean/internal/chat/interpret"

// GeminiAgent invokes the Gemini CLI with auto-approval and stream-json
// output. The prompt is a positional argument. The CLI echoes the user
// prompt back as its first record; the interpreter drops that echo.
type GeminiAgent struct{}

func (a *GeminiAgent) ID() string          { return "gemini" }
func (a *GeminiAgent) DisplayName() string { return "Gemini" }

func (a *GeminiAgent) BinaryNames() []string {
	return []string{"gemini"}
}

func (a *GeminiAgent) InstallHint() string {
	return "npm install -g @google/gemini-cli"
}

func (a *GeminiAgent) LaunchPolicy() LaunchPolicy {
	return LaunchPolicy{
		UseNohup:    true,
		SplitStderr: true,
	}
}

func (a *GeminiAgent) BuildArgs(opts CommandOptions) []string {
	var args []string

	if opts.Model != "" {
		args = append(args, "-m", opts.Model)
	}

	// No sandboxed or plan variant; everything runs auto-approved.
	args = append(args, "--yolo", "-o", "stream-json")

	args = append(args, opts.Prompt)
	return args
}

func (a *GeminiAgent) BuildPrompt(opts CommandOptions) string {
	return opts.Prompt
}

func (a *GeminiAgent) NewInterpreter(sink interpret.Sink) interpret.Interpreter {
	return interpret.NewGemini(sink)
}
