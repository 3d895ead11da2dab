package agents

import "github.com/ninedotdev/jean/internal/chat/interpret"

// CodexAgent invokes the Codex CLI through its non-interactive exec
// subcommand. The prompt rides in argv, and stderr goes to its own log
// file so diagnostics never pollute the JSON stream. There is no plan
// mode: the closest sandbox is workspace-write.
type CodexAgent struct{}

func (a *CodexAgent) ID() string          { return "codex" }
func (a *CodexAgent) DisplayName() string { return "Codex" }

func (a *CodexAgent) BinaryNames() []string {
	return []string{"codex"}
}

func (a *CodexAgent) InstallHint() string {
	return "npm install -g @openai/codex"
}

func (a *CodexAgent) LaunchPolicy() LaunchPolicy {
	return LaunchPolicy{
		UseNohup:    true,
		SplitStderr: true,
	}
}

func (a *CodexAgent) BuildArgs(opts CommandOptions) []string {
	args := []string{"exec"}

	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	args = append(args, "--json")

	// build gets the restricted sandbox; plan and yolo both run
	// full-auto since the CLI has no read-only mode.
	if opts.ExecutionMode == ModeBuild {
		args = append(args, "--sandbox", "workspace-write")
	} else {
		args = append(args, "--full-auto")
	}

	// Reasoning effort is configured through the CLI's own config
	// file; exec has no flag for it.

	args = append(args, opts.Prompt)
	return args
}

func (a *CodexAgent) BuildPrompt(opts CommandOptions) string {
	return opts.Prompt
}

func (a *CodexAgent) NewInterpreter(sink interpret.Sink) interpret.Interpreter {
	return interpret.NewCodex(sink)
}
