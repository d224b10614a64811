package tools

import (
	"context"
	"encoding/json"
)

// ToolResult represents the raw result of a tool execution
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Tool defines an in-process tool served by LocalProvider
type Tool interface {
	// Name returns the unique name of the tool
	Name() string

	// Description returns a description of what the tool does
	Description() string

	// Parameters returns the JSON Schema for the tool's parameters
	Parameters() json.RawMessage

	// Execute runs the tool with the given arguments and returns the result
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)
}

// Descriptor describes one invocable capability of a provider.
// InputSchema is opaque to the loop; it is forwarded to the reasoning engine
// and checked against each invocation's arguments.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Provider is the capability-provider boundary. Both calls block and may fail.
type Provider interface {
	ListTools(ctx context.Context) ([]Descriptor, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (ToolResult, error)
}

// HealthReporter is implemented by providers that track connection state.
type HealthReporter interface {
	Healthy() bool
}

// InvocationRequest is one tool call requested by the reasoning engine.
type InvocationRequest struct {
	// ID correlates the request with its result on the next engine call
	ID        string
	Name      string
	Arguments json.RawMessage
}

// InvocationResult is the normalized outcome of one InvocationRequest.
type InvocationResult struct {
	ID      string
	Name    string
	Success bool
	Output  string
	Error   string
}

// Content returns the payload fed back to the engine: the output on success,
// the error description on failure.
func (r InvocationResult) Content() string {
	if r.Success {
		return r.Output
	}
	return r.Error
}
