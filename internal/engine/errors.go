package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vibe8n/agentloop/internal/agenterr"
)

// classifyStatus maps an HTTP status from a model API onto the taxonomy.
func classifyStatus(provider string, status int, cause error) *agenterr.AgentError {
	switch {
	case status == http.StatusTooManyRequests:
		return agenterr.Wrap(cause, agenterr.ErrEngineQuotaExceeded, fmt.Sprintf("%s rate limit exceeded", provider)).
			WithContext("status", status)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return agenterr.Wrap(cause, agenterr.ErrEngineConfig, fmt.Sprintf("%s rejected the credential", provider)).
			WithContext("status", status)
	default:
		return agenterr.Wrap(cause, agenterr.ErrEngineUnavailable, fmt.Sprintf("%s request failed", provider)).
			WithContext("status", status)
	}
}

func transportError(provider string, err error) error {
	// cancellation is the caller's doing, keep it recognizable
	if errors.Is(err, context.Canceled) {
		return err
	}
	return agenterr.Wrap(err, agenterr.ErrEngineUnavailable, fmt.Sprintf("%s unreachable", provider))
}

func missingCredential(envVar string) error {
	return agenterr.New(agenterr.ErrEngineConfig, fmt.Sprintf("%s not set", envVar))
}
