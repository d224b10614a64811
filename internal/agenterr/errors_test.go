package agenterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentError_ErrorIncludesCause(t *testing.T) {
	err := Wrap(errors.New("connection refused"), ErrEngineUnavailable, "model request failed")
	assert.Equal(t, "model request failed: connection refused", err.Error())
}

func TestAgentError_DetailSortsContext(t *testing.T) {
	err := New(ErrInvocationFailure, "tool failed").
		WithContext("tool", "search").
		WithContext("attempt", 1)

	assert.Equal(t, "[InvocationFailure] tool failed | context: attempt=1, tool=search", err.Detail())
}

func TestIsErrorType_ThroughWrapping(t *testing.T) {
	base := New(ErrEngineQuotaExceeded, "rate limited")
	wrapped := fmt.Errorf("iteration 2: %w", base)

	assert.True(t, IsErrorType(wrapped, ErrEngineQuotaExceeded))
	assert.False(t, IsErrorType(wrapped, ErrEngineConfig))
	assert.Equal(t, ErrEngineQuotaExceeded, TypeOf(wrapped))
	assert.Equal(t, ErrUnknown, TypeOf(errors.New("plain")))
}

func TestAgentError_Unwrap(t *testing.T) {
	cause := errors.New("broken pipe")
	err := Wrap(cause, ErrProviderUnavailable, "provider call failed")

	require.ErrorIs(t, err, cause)
	assert.True(t, err.Fatal())
	assert.False(t, New(ErrInvocationFailure, "x").Fatal())
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "ProviderUnavailable", ErrProviderUnavailable.String())
	assert.Equal(t, "EngineConfigError", ErrEngineConfig.String())
	assert.Equal(t, "Unknown", ErrorType(99).String())
}
