package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibe8n/agentloop/internal/engine"
	"github.com/vibe8n/agentloop/internal/tools"
)

func TestEvent_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "thought",
			event: Event{Payload: Thought{Text: "Processing request with 3 available tools..."}},
			want:  `{"type":"thought","content":"Processing request with 3 available tools..."}`,
		},
		{
			name:  "tool call",
			event: Event{Payload: ToolCall{ID: "c1", Tool: "search", Arguments: json.RawMessage(`{"query":"x","limit":2}`)}},
			want:  `{"type":"tool_call","content":"search","metadata":{"arguments":{"query":"x","limit":2}}}`,
		},
		{
			name:  "tool call without arguments",
			event: Event{Payload: ToolCall{ID: "c1", Tool: "list"}},
			want:  `{"type":"tool_call","content":"list","metadata":{"arguments":{}}}`,
		},
		{
			name:  "tool result",
			event: Event{Payload: ToolResult{ID: "c1", Tool: "search", Content: "found"}},
			want:  `{"type":"tool_result","content":"found","metadata":{"tool":"search"}}`,
		},
		{
			name:  "failed tool result",
			event: Event{Payload: ToolResult{ID: "c1", Tool: "search", Content: "timeout", Error: true}},
			want:  `{"type":"tool_result","content":"timeout","metadata":{"tool":"search","error":true}}`,
		},
		{
			name:  "assistant message",
			event: Event{Payload: AssistantMessage{Text: "done"}},
			want:  `{"type":"assistant_message","content":"done"}`,
		},
		{
			name:  "system notice",
			event: Event{Payload: SystemNotice{Text: "Error: boom"}},
			want:  `{"type":"system_notice","content":"Error: boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestEvent_MetadataIsACopy(t *testing.T) {
	e := Event{Payload: ToolResult{Tool: "search"}}
	md := e.Metadata()
	md["tool"] = "changed"
	assert.Equal(t, "search", e.Metadata()["tool"])
}

func TestResponse_MarshalJSON(t *testing.T) {
	resp := Response{
		Events:     []Event{{Payload: AssistantMessage{Text: "hi"}}},
		Final:      "hi",
		SessionID:  "s-1",
		Iterations: 1,
	}
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"events":[{"type":"assistant_message","content":"hi"}],"final":"hi","session_id":"s-1"}`, string(data))
}

func TestConversation(t *testing.T) {
	c := NewConversation()
	c.AppendUser("hello")
	raw := &engine.RawTurn{ID: "r1"}
	c.AppendAssistantRaw(raw)
	c.AppendToolResult("c1", tools.InvocationResult{ID: "c1", Name: "search", Success: true, Output: "ok"})
	c.AppendAssistantRaw(raw)
	c.AppendToolResult("c2", tools.InvocationResult{ID: "c2", Name: "search", Error: "nope"})

	snapshot := c.Snapshot()
	require.Len(t, snapshot, 5)
	assert.Equal(t, 5, c.Len())

	assert.Equal(t, engine.Turn{Role: engine.RoleUser, Text: "hello"}, snapshot[0])
	assert.Same(t, raw, snapshot[1].Raw)
	assert.Equal(t, engine.Turn{Role: engine.RoleToolResult, Text: "ok", CallID: "c1", ToolName: "search"}, snapshot[2])
	assert.Equal(t, engine.Turn{Role: engine.RoleToolResult, Text: "nope", CallID: "c2", ToolName: "search", IsError: true}, snapshot[4])

	snapshot[0].Text = "mutated"
	c.AppendUser("later")
	assert.Equal(t, "hello", c.Snapshot()[0].Text)
	assert.Len(t, snapshot, 5)
}
