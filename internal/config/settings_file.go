package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// FileSettings are the values an AGENT_CONFIG_FILE may override. Secrets stay
// in the environment.
type FileSettings struct {
	EngineProvider string `yaml:"engine_provider"`
	AnthropicModel string `yaml:"anthropic_model"`
	OpenAIAPIURL   string `yaml:"openai_api_url"`
	OpenAIModel    string `yaml:"openai_model"`
	MaxTokens      int    `yaml:"max_tokens"`
	SystemPrompt   string `yaml:"system_prompt"`

	CapabilityProvider string `yaml:"capability_provider"`

	MCPCommand string            `yaml:"mcp_command"`
	MCPArgs    []string          `yaml:"mcp_args"`
	MCPEnv     map[string]string `yaml:"mcp_env"`
	// nil keeps the environment value; "" disables the probe
	MCPHealthCron *string `yaml:"mcp_health_cron"`

	MaxIterations int    `yaml:"max_iterations"`
	HTTPAddr      string `yaml:"http_addr"`
	LogLevel      string `yaml:"log_level"`
}

func (s FileSettings) Validate() error {
	if s.MCPHealthCron != nil && strings.TrimSpace(*s.MCPHealthCron) != "" {
		if _, err := cron.ParseStandard(*s.MCPHealthCron); err != nil {
			return fmt.Errorf("invalid mcp_health_cron: %w", err)
		}
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative")
	}
	if s.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative")
	}
	return nil
}

func LoadSettingsFile(path string) (FileSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileSettings{}, err
	}
	var settings FileSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return FileSettings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return FileSettings{}, err
	}
	return settings, nil
}

// WithFileSettings overrides every field the file sets.
func WithFileSettings(settings FileSettings) Option {
	return func(c *Config) {
		if strings.TrimSpace(settings.EngineProvider) != "" {
			c.Engine.Provider = settings.EngineProvider
		}
		if strings.TrimSpace(settings.AnthropicModel) != "" {
			c.Engine.AnthropicModel = settings.AnthropicModel
		}
		if strings.TrimSpace(settings.OpenAIAPIURL) != "" {
			c.Engine.OpenAIAPIURL = settings.OpenAIAPIURL
		}
		if strings.TrimSpace(settings.OpenAIModel) != "" {
			c.Engine.OpenAIModel = settings.OpenAIModel
		}
		if settings.MaxTokens > 0 {
			c.Engine.MaxTokens = settings.MaxTokens
		}
		if strings.TrimSpace(settings.SystemPrompt) != "" {
			c.Engine.SystemPrompt = settings.SystemPrompt
		}
		if strings.TrimSpace(settings.CapabilityProvider) != "" {
			c.Tools.Provider = settings.CapabilityProvider
		}
		if strings.TrimSpace(settings.MCPCommand) != "" {
			c.MCP.Command = settings.MCPCommand
		}
		if settings.MCPArgs != nil {
			c.MCP.Args = settings.MCPArgs
		}
		if len(settings.MCPEnv) > 0 {
			if c.MCP.Env == nil {
				c.MCP.Env = make(map[string]string, len(settings.MCPEnv))
			}
			for k, v := range settings.MCPEnv {
				c.MCP.Env[k] = v
			}
		}
		if settings.MCPHealthCron != nil {
			c.MCP.HealthCron = strings.TrimSpace(*settings.MCPHealthCron)
		}
		if settings.MaxIterations > 0 {
			c.Agent.MaxIterations = settings.MaxIterations
		}
		if strings.TrimSpace(settings.HTTPAddr) != "" {
			c.HTTP.Addr = settings.HTTPAddr
		}
		if strings.TrimSpace(settings.LogLevel) != "" {
			c.Log.Level = settings.LogLevel
		}
	}
}
