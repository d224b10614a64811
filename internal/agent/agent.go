package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/vibe8n/agentloop/internal/agenterr"
	"github.com/vibe8n/agentloop/internal/engine"
	"github.com/vibe8n/agentloop/internal/tools"
	"github.com/vibe8n/agentloop/pkg/log"
)

const errorFinalPrefix = "Sorry, an error occurred"

// Agent is the request boundary around the loop. The caller never receives a
// loop error: fatal conditions come back as a system_notice trace.
type Agent struct {
	engine       engine.Engine
	registry     *tools.Registry
	orchestrator *Orchestrator
}

// NewAgent creates an agent over a shared engine and capability registry.
// maxIterations <= 0 selects DefaultMaxIterations.
func NewAgent(eng engine.Engine, registry *tools.Registry, maxIterations int) *Agent {
	return &Agent{
		engine:       eng,
		registry:     registry,
		orchestrator: NewOrchestrator(eng, registry, maxIterations),
	}
}

// Ready reports whether the capability provider is connected.
func (a *Agent) Ready() bool {
	return a.registry.Available()
}

// EngineConfigured reports whether the engine has a credential.
func (a *Agent) EngineConfigured() bool {
	return a.engine != nil && a.engine.Configured()
}

// Capabilities lists what the provider currently offers.
func (a *Agent) Capabilities(ctx context.Context) ([]tools.Descriptor, error) {
	return a.registry.ListCapabilities(ctx)
}

// Chat runs one request. The only error it returns is a Validation error for
// an empty prompt.
func (a *Agent) Chat(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, agenterr.New(agenterr.ErrValidation, "prompt is required")
	}

	requestID := uuid.NewString()
	log.Info("Chat request %s (session %s)", requestID, req.SessionID)

	result, err := a.orchestrator.Run(ctx, req.Prompt)
	if err != nil {
		log.Error("Chat request %s failed", requestID)
		agenterr.LogError(err)
		return errorResponse(req, err), nil
	}

	log.Info("Chat request %s finished: outcome=%s iterations=%d events=%d",
		requestID, result.Outcome, result.Iterations, len(result.Events))

	return &Response{
		Events:     result.Events,
		Final:      result.Final,
		SessionID:  req.SessionID,
		Iterations: result.Iterations,
	}, nil
}

func errorResponse(req Request, err error) *Response {
	return &Response{
		Events:    []Event{{Payload: SystemNotice{Text: "Error: " + err.Error()}}},
		Final:     errorFinalPrefix + ": " + err.Error(),
		SessionID: req.SessionID,
	}
}
