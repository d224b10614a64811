// Package engine adapts external language-model services to the turn-based
// contract the orchestration loop drives: ordered turns and a capability list
// in, text segments and invocation requests out.
package engine

import (
	"context"
	"strings"

	"github.com/vibe8n/agentloop/internal/agenterr"
	"github.com/vibe8n/agentloop/internal/tools"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
)

// Turn is one role-tagged unit of conversation history.
type Turn struct {
	Role Role

	// Text is the user prompt or the tool result content.
	Text string

	// CallID and ToolName are set on tool-result turns.
	CallID   string
	ToolName string
	IsError  bool

	// Raw is set on assistant turns and replayed verbatim.
	Raw *RawTurn
}

// RawTurn is an engine-native assistant turn. Payload is opaque outside the
// adapter that produced it.
type RawTurn struct {
	// ID identifies one engine response; the same response may be appended
	// more than once when it requested several invocations.
	ID       string
	Provider string
	Payload  any
}

type StopReason string

const (
	StopEnd             StopReason = "end"
	StopNeedsInvocation StopReason = "needs_invocation"
)

// Response is the structured result of one Converse call.
type Response struct {
	TextSegments []string
	Invocations  []tools.InvocationRequest
	StopReason   StopReason
	Raw          *RawTurn
}

// Engine is the reasoning engine adapter.
//
// Converse fails with an *agenterr.AgentError of type ErrEngineConfig,
// ErrEngineUnavailable or ErrEngineQuotaExceeded; none is retried.
type Engine interface {
	Name() string
	Configured() bool
	Converse(ctx context.Context, turns []Turn, capabilities []tools.Descriptor) (*Response, error)
}

func validateTurns(turns []Turn) error {
	if len(turns) == 0 {
		return agenterr.New(agenterr.ErrValidation, "at least one turn is required")
	}
	return nil
}

// turnGroup is one replay unit: a user turn, or an assistant turn with the
// tool results that answer it.
type turnGroup struct {
	user      *Turn
	assistant *RawTurn
	results   []Turn
}

// groupTurns collapses consecutive appends of the same raw assistant turn and
// gathers their tool results, so every tool call of one assistant message is
// answered in a single reply.
func groupTurns(turns []Turn) []turnGroup {
	groups := make([]turnGroup, 0, len(turns))
	for i := range turns {
		turn := turns[i]
		switch turn.Role {
		case RoleUser:
			groups = append(groups, turnGroup{user: &turns[i]})
		case RoleAssistant:
			if n := len(groups); n > 0 && sameRaw(groups[n-1].assistant, turn.Raw) {
				continue
			}
			groups = append(groups, turnGroup{assistant: turn.Raw})
		case RoleToolResult:
			if n := len(groups); n > 0 && groups[n-1].assistant != nil {
				groups[n-1].results = append(groups[n-1].results, turn)
				continue
			}
			groups = append(groups, turnGroup{results: []Turn{turn}})
		}
	}
	return groups
}

func sameRaw(a, b *RawTurn) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b || (a.ID != "" && a.ID == b.ID)
}

// Text joins the text segments with a blank line.
func (r *Response) Text() string {
	return strings.Join(r.TextSegments, "\n\n")
}
