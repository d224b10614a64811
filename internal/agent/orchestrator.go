package agent

import (
	"context"
	"fmt"

	"github.com/vibe8n/agentloop/internal/engine"
	"github.com/vibe8n/agentloop/internal/tools"
	"github.com/vibe8n/agentloop/pkg/log"
)

const (
	// DefaultMaxIterations bounds the number of reasoning calls per request
	DefaultMaxIterations = 5

	FallbackMessage = "Reached maximum iterations. Please try rephrasing your request."
)

// Orchestrator drives the reasoning/dispatch loop for one request at a time.
// It holds no per-request state and may be shared across goroutines.
type Orchestrator struct {
	engine        engine.Engine
	registry      *tools.Registry
	maxIterations int
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(eng engine.Engine, registry *tools.Registry, maxIterations int) *Orchestrator {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Orchestrator{
		engine:        eng,
		registry:      registry,
		maxIterations: maxIterations,
	}
}

// RunResult is the outcome of one loop run
type RunResult struct {
	Events     []Event
	Final      string
	Iterations int
	Outcome    Outcome

	// Turns is the conversation as it stood when the loop stopped
	Turns []engine.Turn
}

// Run executes the loop for prompt. Fatal conditions (provider unavailable,
// engine errors, cancellation) are returned as errors; failed invocations are
// recorded in the trace and fed back to the engine.
func (o *Orchestrator) Run(ctx context.Context, prompt string) (*RunResult, error) {
	capabilities, err := o.registry.ListCapabilities(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{}
	emit := func(p Payload) {
		result.Events = append(result.Events, Event{Payload: p})
	}

	emit(Thought{Text: fmt.Sprintf("Processing request with %d available tools...", len(capabilities))})

	conversation := NewConversation()
	conversation.AppendUser(prompt)

	dispatcher := tools.NewDispatcher(o.registry.Provider(), capabilities)

	for i := 0; i < o.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result.Iterations++
		log.Debug("Iteration %d/%d: %d turns, %d tools", i+1, o.maxIterations, conversation.Len(), len(capabilities))

		resp, err := o.engine.Converse(ctx, conversation.Snapshot(), capabilities)
		if err != nil {
			return nil, fmt.Errorf("reasoning failed at iteration %d: %w", i+1, err)
		}

		if len(resp.Invocations) == 0 {
			if resp.Raw != nil {
				conversation.AppendAssistantRaw(resp.Raw)
			}
			result.Final = resp.Text()
			result.Outcome = OutcomeDone
			emit(AssistantMessage{Text: result.Final})
			result.Turns = conversation.Snapshot()
			return result, nil
		}

		// Dispatch strictly in the order the engine asked, one at a time.
		for _, req := range resp.Invocations {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			emit(ToolCall{ID: req.ID, Tool: req.Name, Arguments: req.Arguments})

			invocation := dispatcher.Invoke(ctx, req)
			emit(ToolResult{
				ID:      req.ID,
				Tool:    req.Name,
				Content: invocation.Content(),
				Error:   !invocation.Success,
			})

			conversation.AppendAssistantRaw(resp.Raw)
			conversation.AppendToolResult(req.ID, invocation)

			if invocation.Success {
				log.Info("Tool %s executed: error=false", req.Name)
			} else {
				log.Warn("Tool %s executed: error=true (%s)", req.Name, invocation.Error)
			}
		}
	}

	log.Warn("Max iterations (%d) reached without completion", o.maxIterations)
	result.Final = FallbackMessage
	result.Outcome = OutcomeMaxIterationsReached
	emit(AssistantMessage{Text: FallbackMessage})
	result.Turns = conversation.Snapshot()
	return result, nil
}
