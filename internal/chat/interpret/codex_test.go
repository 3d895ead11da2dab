package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodexAgentMessage(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	done := c.Process(`{"type":"item.completed","item":{"id":"item_0","type":"agent_message","text":"Hello there"}}`)
	assert.False(t, done)
	assert.Equal(t, []string{"Hello there"}, sink.chunks)
	assert.Equal(t, "Hello there", c.Transcript())
}

func TestCodexReasoning(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	c.Process(`{"type":"item.completed","item":{"id":"item_0","type":"reasoning","text":"Considering options"}}`)
	assert.Equal(t, []string{"Considering options"}, sink.thinking)
	assert.Empty(t, c.Transcript(), "reasoning is not transcript content")
}

func TestCodexCommandExecutionLifecycle(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	c.Process(`{"type":"item.started","item":{"id":"item_1","type":"command_execution","command":"ls -la"}}`)
	require.Len(t, sink.toolUses, 1)
	assert.Equal(t, "item_1", sink.toolUses[0].id)
	assert.Equal(t, "Bash", sink.toolUses[0].name)
	assert.JSONEq(t, `{"command":"ls -la"}`, string(sink.toolUses[0].input))

	c.Process(`{"type":"item.completed","item":{"id":"item_1","type":"command_execution","command":"ls -la","aggregated_output":"total 0","exit_code":0}}`)
	require.Len(t, sink.toolResults, 1)
	assert.Equal(t, "item_1", sink.toolResults[0].toolUseID)
	assert.Equal(t, "total 0", sink.toolResults[0].output)
}

func TestCodexCommandFailureCarriesExitCode(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	c.Process(`{"type":"item.completed","item":{"id":"item_1","type":"command_execution","aggregated_output":"no such file","exit_code":2}}`)
	require.Len(t, sink.toolResults, 1)
	assert.Contains(t, sink.toolResults[0].output, "no such file")
	assert.Contains(t, sink.toolResults[0].output, "exit code 2")
}

func TestCodexFileChange(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	c.Process(`{"type":"item.completed","item":{"id":"item_2","type":"file_change","changes":[{"path":"main.go","kind":"update"},{"path":"new.go","kind":"add"}]}}`)
	require.Len(t, sink.toolUses, 2)
	assert.Equal(t, "Edit", sink.toolUses[0].name)
	assert.JSONEq(t, `{"file_path":"main.go"}`, string(sink.toolUses[0].input))
	assert.Equal(t, "Write", sink.toolUses[1].name)
}

func TestCodexTurnCompletedIsAuthoritative(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	c.Process(`{"type":"item.completed","item":{"id":"item_0","type":"agent_message","text":"done"}}`)
	done := c.Process(`{"type":"turn.completed","usage":{"input_tokens":120,"cached_input_tokens":100,"output_tokens":45}}`)
	require.True(t, done)

	usage := c.Usage()
	require.NotNil(t, usage)
	assert.Equal(t, 120, usage.InputTokens)
	assert.Equal(t, 45, usage.OutputTokens)
	assert.Equal(t, 100, usage.CacheReadTokens)
}

func TestCodexTurnFailed(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	done := c.Process(`{"type":"turn.failed","error":{"message":"model overloaded"}}`)
	assert.True(t, done)
	assert.Equal(t, []string{"model overloaded"}, sink.errors)
}

func TestCodexNonJSONLinePassesThrough(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	done := c.Process("plain banner text")
	assert.False(t, done)
	assert.Equal(t, []string{"plain banner text\n"}, sink.chunks)
	assert.Equal(t, "plain banner text\n", c.Transcript())
}

func TestCodexUnknownTypeProbesContentFields(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	c.Process(`{"type":"something.new","text":"salvaged"}`)
	assert.Equal(t, []string{"salvaged"}, sink.chunks)

	// No content fields at all: dropped silently.
	c.Process(`{"type":"something.else","weird":true}`)
	assert.Len(t, sink.chunks, 1)
}

func TestCodexIgnoresItemUpdated(t *testing.T) {
	sink := &recordingSink{}
	c := NewCodex(sink)

	c.Process(`{"type":"item.updated","item":{"id":"item_0","type":"agent_message","text":"partial"}}`)
	assert.Empty(t, sink.chunks)
	assert.Empty(t, c.Transcript())
}
