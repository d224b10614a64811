package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/vibe8n/agentloop/pkg/log"
)

// DefaultSuccessOutput is reported when a provider succeeds without output.
const DefaultSuccessOutput = "Success"

// Dispatcher executes invocation requests against a provider. It is built per
// request with the capability set the engine was offered.
type Dispatcher struct {
	provider     Provider
	capabilities map[string]Descriptor
}

func NewDispatcher(provider Provider, capabilities []Descriptor) *Dispatcher {
	index := make(map[string]Descriptor, len(capabilities))
	for _, c := range capabilities {
		index[c.Name] = c
	}
	return &Dispatcher{
		provider:     provider,
		capabilities: index,
	}
}

// Invoke performs exactly one provider round trip for req and never returns an
// error: every failure, including a panic in the provider, becomes a result
// with Success=false. Failed calls are not retried.
func (d *Dispatcher) Invoke(ctx context.Context, req InvocationRequest) (result InvocationResult) {
	result = InvocationResult{ID: req.ID, Name: req.Name}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Tool %s panicked: %v", req.Name, r)
			result = failed(req, fmt.Sprintf("tool %q panicked: %v", req.Name, r))
		}
	}()

	if d.provider == nil {
		return failed(req, "capability provider not connected")
	}

	descriptor, ok := d.capabilities[req.Name]
	if !ok {
		return failed(req, fmt.Sprintf("capability %q not found", req.Name))
	}

	if err := ValidateArguments(descriptor, req.Arguments); err != nil {
		return failed(req, fmt.Sprintf("invalid arguments for %q: %v", req.Name, err))
	}

	raw, err := d.provider.CallTool(ctx, req.Name, req.Arguments)
	if err != nil {
		return failed(req, err.Error())
	}

	if raw.IsError {
		msg := strings.TrimSpace(raw.Content)
		if msg == "" {
			msg = fmt.Sprintf("tool %q reported an error", req.Name)
		}
		return failed(req, msg)
	}

	output := raw.Content
	if output == "" {
		output = DefaultSuccessOutput
	}

	result.Success = true
	result.Output = output
	return result
}

func failed(req InvocationRequest, msg string) InvocationResult {
	return InvocationResult{
		ID:    req.ID,
		Name:  req.Name,
		Error: msg,
	}
}
