package agent

import (
	"slices"

	"github.com/vibe8n/agentloop/internal/engine"
	"github.com/vibe8n/agentloop/internal/tools"
)

// Conversation is the ordered turn history of one request. It is owned by a
// single loop and is not safe for concurrent use.
type Conversation struct {
	turns []engine.Turn
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) AppendUser(text string) {
	c.turns = append(c.turns, engine.Turn{Role: engine.RoleUser, Text: text})
}

// AppendAssistantRaw records an engine turn exactly as the engine produced it.
func (c *Conversation) AppendAssistantRaw(raw *engine.RawTurn) {
	c.turns = append(c.turns, engine.Turn{Role: engine.RoleAssistant, Raw: raw})
}

func (c *Conversation) AppendToolResult(correlationID string, result tools.InvocationResult) {
	c.turns = append(c.turns, engine.Turn{
		Role:     engine.RoleToolResult,
		Text:     result.Content(),
		CallID:   correlationID,
		ToolName: result.Name,
		IsError:  !result.Success,
	})
}

// Snapshot returns a copy of the history in append order.
func (c *Conversation) Snapshot() []engine.Turn {
	return slices.Clone(c.turns)
}

func (c *Conversation) Len() int {
	return len(c.turns)
}
