package agent

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"

	"github.com/vibe8n/agentloop/internal/tools"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind identifies the variant carried by an Event
type Kind string

const (
	KindThought          Kind = "thought"
	KindToolCall         Kind = "tool_call"
	KindToolResult       Kind = "tool_result"
	KindAssistantMessage Kind = "assistant_message"
	KindSystemNotice     Kind = "system_notice"
)

// Payload is the closed set of event variants. Each variant fixes the shape
// of its content and metadata.
type Payload interface {
	Kind() Kind
	content() string
	metadata() map[string]any
}

// Thought is a progress note from the loop itself
type Thought struct {
	Text string
}

// ToolCall records one invocation request as it is dispatched
type ToolCall struct {
	ID        string
	Tool      string
	Arguments json.RawMessage
}

// ToolResult records the normalized outcome of one ToolCall
type ToolResult struct {
	ID      string
	Tool    string
	Content string
	Error   bool
}

// AssistantMessage is the terminal answer of a request
type AssistantMessage struct {
	Text string
}

// SystemNotice reports a fatal condition to the caller
type SystemNotice struct {
	Text string
}

func (Thought) Kind() Kind          { return KindThought }
func (ToolCall) Kind() Kind         { return KindToolCall }
func (ToolResult) Kind() Kind       { return KindToolResult }
func (AssistantMessage) Kind() Kind { return KindAssistantMessage }
func (SystemNotice) Kind() Kind     { return KindSystemNotice }

func (p Thought) content() string          { return p.Text }
func (p ToolCall) content() string         { return p.Tool }
func (p ToolResult) content() string       { return p.Content }
func (p AssistantMessage) content() string { return p.Text }
func (p SystemNotice) content() string     { return p.Text }

func (Thought) metadata() map[string]any { return nil }

func (p ToolCall) metadata() map[string]any {
	args, err := tools.DecodeArguments(p.Arguments)
	if err != nil {
		return map[string]any{"arguments": string(p.Arguments)}
	}
	return map[string]any{"arguments": args}
}

func (p ToolResult) metadata() map[string]any {
	md := map[string]any{"tool": p.Tool}
	if p.Error {
		md["error"] = true
	}
	return md
}

func (AssistantMessage) metadata() map[string]any { return nil }
func (SystemNotice) metadata() map[string]any     { return nil }

// Event is one entry of the trace. Events are values and are never modified
// after the loop records them.
type Event struct {
	Payload Payload
}

func (e Event) Kind() Kind { return e.Payload.Kind() }

func (e Event) Content() string { return e.Payload.content() }

// Metadata returns a fresh map on every call, nil when the variant has none.
func (e Event) Metadata() map[string]any { return e.Payload.metadata() }

type eventJSON struct {
	Type     Kind           `json:"type"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(eventJSON{
		Type:     e.Kind(),
		Content:  e.Content(),
		Metadata: e.Metadata(),
	})
}

// Request is one inbound chat request
type Request struct {
	// Prompt is the user's natural-language request, required
	Prompt string

	// SessionID is opaque and echoed back unchanged
	SessionID string
}

// Response is what the caller receives for one Request
type Response struct {
	Events    []Event `json:"events"`
	Final     string  `json:"final"`
	SessionID string  `json:"session_id"`

	// Iterations is the number of reasoning calls made
	Iterations int `json:"-"`
}

// Outcome is the terminal state of one loop run
type Outcome string

const (
	OutcomeDone                 Outcome = "done"
	OutcomeMaxIterationsReached Outcome = "max_iterations_reached"
)
