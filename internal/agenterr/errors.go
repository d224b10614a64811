package agenterr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vibe8n/agentloop/pkg/log"
)

type ErrorType int

const (
	ErrProviderUnavailable ErrorType = iota
	ErrEngineConfig
	ErrEngineUnavailable
	ErrEngineQuotaExceeded
	ErrInvocationFailure
	ErrValidation
	ErrUnknown
)

// AgentError is the single error shape used across the request path.
type AgentError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func New(errorType ErrorType, message string) *AgentError {
	return &AgentError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewWithCause(errorType ErrorType, message string, cause error) *AgentError {
	return &AgentError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

// Error renders "message: cause" so the text stays readable when it is
// surfaced to the caller in a system notice.
func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Detail includes the type and context map, for logs.
func (e *AgentError) Detail() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *AgentError) Unwrap() error {
	return e.Cause
}

func (e *AgentError) WithContext(key string, value any) *AgentError {
	e.Context[key] = value
	return e
}

// Fatal reports whether the error ends the current request.
func (e *AgentError) Fatal() bool {
	return e.Type != ErrInvocationFailure
}

func (t ErrorType) String() string {
	switch t {
	case ErrProviderUnavailable:
		return "ProviderUnavailable"
	case ErrEngineConfig:
		return "EngineConfigError"
	case ErrEngineUnavailable:
		return "EngineUnavailable"
	case ErrEngineQuotaExceeded:
		return "EngineQuotaExceeded"
	case ErrInvocationFailure:
		return "InvocationFailure"
	case ErrValidation:
		return "Validation"
	default:
		return "Unknown"
	}
}

// Advice returns an operator hint for the error type.
func Advice(t ErrorType) string {
	switch t {
	case ErrProviderUnavailable:
		return "Check that the MCP server command starts and stays connected"
	case ErrEngineConfig:
		return "Set the API key for the configured engine provider"
	case ErrEngineUnavailable:
		return "Check network connectivity to the model API and its status page"
	case ErrEngineQuotaExceeded:
		return "The model API is rate limiting this key; wait or raise the quota"
	case ErrInvocationFailure:
		return "The tool call failed; the model is told and may retry"
	case ErrValidation:
		return "Check the request payload"
	default:
		return "Review the error detail"
	}
}

// LogError writes err with its advice. Errors outside the taxonomy are logged
// as is.
func LogError(err error) {
	var agentErr *AgentError
	if !errors.As(err, &agentErr) {
		log.Error("Unknown error: %v", err)
		return
	}
	log.Error("Error detail: %s | advice: %s", agentErr.Detail(), Advice(agentErr.Type))
}

func IsErrorType(err error, errorType ErrorType) bool {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Type == errorType
	}
	return false
}

// TypeOf returns the taxonomy type of err, ErrUnknown when err is not an
// AgentError.
func TypeOf(err error) ErrorType {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Type
	}
	return ErrUnknown
}

func Wrap(err error, errorType ErrorType, message string) *AgentError {
	return NewWithCause(errorType, message, err)
}
