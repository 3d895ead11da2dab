// Package agents describes the supported AI CLI vendors: how to invoke
// each binary, which launch quirks it has, and which interpreter reads
// its output stream.
package agents

import (
	"sort"

	"github.com/ninedotdev/jean/internal/chat/interpret"
)

// Execution modes accepted by StartTurn. Not every vendor honors every
// mode; vendors without a read-only sandbox treat plan as build.
const (
	ModePlan  = "plan"
	ModeBuild = "build"
	ModeYolo  = "yolo"
)

// Thinking levels accepted by StartTurn.
const (
	ThinkingOff        = "off"
	ThinkingThink      = "think"
	ThinkingMegathink  = "megathink"
	ThinkingUltrathink = "ultrathink"
)

// CommandOptions carries the per-turn knobs a vendor turns into argv.
type CommandOptions struct {
	Prompt        string
	Model         string
	ExecutionMode string
	ThinkingLevel string
	WorkingDir    string
}

// LaunchPolicy captures the per-vendor launch quirks the spawn layer
// has to honor.
type LaunchPolicy struct {
	// UseNohup is false for binaries that misbehave under nohup.
	UseNohup bool
	// PromptViaStdin means the prompt must be piped to stdin instead
	// of passed in argv.
	PromptViaStdin bool
	// SplitStderr sends stderr to its own log file instead of merging
	// it into the JSON stream.
	SplitStderr bool
}

// Agent is one supported CLI vendor.
type Agent interface {
	// ID is the stable identifier used in the API and config.
	ID() string
	// DisplayName is what the UI shows.
	DisplayName() string
	// BinaryNames lists executable names to look for, most specific first.
	BinaryNames() []string
	// InstallHint tells the user how to get the binary.
	InstallHint() string
	// LaunchPolicy returns the vendor's launch quirks.
	LaunchPolicy() LaunchPolicy
	// BuildArgs renders the argv for one turn, excluding the binary name.
	BuildArgs(opts CommandOptions) []string
	// BuildPrompt renders the prompt text the CLI receives. Most
	// vendors pass it through; some fold options into it.
	BuildPrompt(opts CommandOptions) string
	// NewInterpreter creates a fresh interpreter for one turn's output.
	NewInterpreter(sink interpret.Sink) interpret.Interpreter
}

var catalog = map[string]Agent{
	"claude": &ClaudeAgent{},
	"codex":  &CodexAgent{},
	"gemini": &GeminiAgent{},
	"kimi":   &KimiAgent{},
}

// Get looks up a vendor by ID.
func Get(id string) (Agent, bool) {
	a, ok := catalog[id]
	return a, ok
}

// All returns every supported vendor in stable order.
func All() []Agent {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	agents := make([]Agent, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, catalog[id])
	}
	return agents
}
