package engine

import (
	"fmt"
	"strings"

	"github.com/vibe8n/agentloop/internal/agenterr"
)

// Config selects and configures one engine adapter.
type Config struct {
	Provider  string
	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
}

// New returns the adapter named by cfg.Provider. An empty provider selects
// Anthropic.
func New(cfg Config) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderAnthropic:
		return NewAnthropic(cfg.Anthropic), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI), nil
	default:
		return nil, agenterr.New(agenterr.ErrEngineConfig, fmt.Sprintf("unknown engine provider %q", cfg.Provider)).
			WithContext("supported", []string{ProviderAnthropic, ProviderOpenAI})
	}
}
