package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/vibe8n/agentloop/internal/engine"
	"github.com/vibe8n/agentloop/internal/mcp"
	"github.com/vibe8n/agentloop/internal/tools"
	"github.com/vibe8n/agentloop/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults, a .env file and an
// optional YAML settings file
//
// Environment Variables:
// Engine Configuration:
// - ENGINE_PROVIDER: anthropic or openai (default: anthropic)
// - ANTHROPIC_API_KEY: Anthropic API key (required to chat with anthropic)
// - ANTHROPIC_MODEL: Model name (default: claude-sonnet-4-20250514)
// - ANTHROPIC_BASE_URL: Alternate API endpoint (optional)
// - OPENAI_API_KEY: API key for an OpenAI-compatible endpoint
// - OPENAI_API_URL: Endpoint URL (default: https://api.openai.com/v1)
// - OPENAI_MODEL: Model name (default: gpt-4o-mini)
// - ENGINE_MAX_TOKENS: Maximum tokens per response (default: 4096)
// - ENGINE_TIMEOUT: Request timeout in seconds (default: 120)
// - ENGINE_SYSTEM_PROMPT: System prompt (optional)
//
// Capability Provider Configuration:
// - CAPABILITY_PROVIDER: mcp or local (default: mcp)
// - SEARCH_API_KEY: Tavily API key, enables web_search on the local provider
// - SEARCH_API_URL: Search endpoint (default: https://api.tavily.com/search)
// - MCP_SERVER_COMMAND: Provider executable (default: npx)
// - MCP_SERVER_ARGS: Space separated arguments (default: n8n-mcp)
// - MCP_SERVER_ENV_<NAME>: Passed to the provider as <NAME>
// - MCP_HEALTH_CRON: Health probe schedule, empty disables (default: @every 30s)
// - MCP_CONNECT_RETRIES: Connect attempts after the first (default: 3)
// - MCP_CONNECT_TIMEOUT: Seconds to keep retrying (default: 60)
//
// Server Configuration:
// - AGENT_MAX_ITERATIONS: Reasoning calls per request (default: 5)
// - HTTP_ADDR: Listen address, overrides PORT
// - PORT: Listen port (default: 8000)
// - CORS_ALLOW_ORIGIN: Allowed origin (default: *)
// - LOG_LEVEL: debug, info, warn, error (default: info)
// - AGENT_CONFIG_FILE: YAML settings file whose values override the environment
// - DOTENV_FILE: .env file to load (default: .env)
type Config struct {
	Engine EngineConfig `json:"engine"`
	MCP    MCPConfig    `json:"mcp"`
	Tools  ToolsConfig  `json:"tools"`
	Agent  AgentConfig  `json:"agent"`
	HTTP   HTTPConfig   `json:"http"`
	Log    LogConfig    `json:"log"`
}

// EngineConfig holds the configuration for the reasoning engine
type EngineConfig struct {
	Provider string `json:"provider"`

	AnthropicAPIKey  string `json:"-"`
	AnthropicModel   string `json:"anthropic_model"`
	AnthropicBaseURL string `json:"anthropic_base_url"`

	OpenAIAPIKey string `json:"-"`
	OpenAIAPIURL string `json:"openai_api_url"`
	OpenAIModel  string `json:"openai_model"`

	MaxTokens    int    `json:"max_tokens"`
	Timeout      int    `json:"timeout"`
	SystemPrompt string `json:"system_prompt"`
}

// Settings converts the configuration into the engine factory input.
func (c EngineConfig) Settings() engine.Config {
	return engine.Config{
		Provider: c.Provider,
		Anthropic: engine.AnthropicConfig{
			APIKey:       c.AnthropicAPIKey,
			Model:        c.AnthropicModel,
			BaseURL:      c.AnthropicBaseURL,
			MaxTokens:    c.MaxTokens,
			SystemPrompt: c.SystemPrompt,
		},
		OpenAI: engine.OpenAIConfig{
			APIKey:       c.OpenAIAPIKey,
			APIURL:       c.OpenAIAPIURL,
			Model:        c.OpenAIModel,
			MaxTokens:    c.MaxTokens,
			Timeout:      c.Timeout,
			SystemPrompt: c.SystemPrompt,
		},
	}
}

// MCPConfig holds the configuration for the capability provider process
type MCPConfig struct {
	Command        string            `json:"command"`
	Args           []string          `json:"args"`
	Env            map[string]string `json:"-"`
	HealthCron     string            `json:"health_cron"`
	ConnectRetries int               `json:"connect_retries"`
	ConnectTimeout int               `json:"connect_timeout"`
}

func (c MCPConfig) ServerConfig() mcp.ServerConfig {
	return mcp.ServerConfig{
		Command:        c.Command,
		Args:           c.Args,
		Env:            c.Env,
		ConnectRetries: uint64(max(c.ConnectRetries, 0)),
		ConnectTimeout: time.Duration(c.ConnectTimeout) * time.Second,
	}
}

// Capability providers
const (
	ProviderMCP   = "mcp"
	ProviderLocal = "local"
)

// ToolsConfig selects the capability provider. The local provider serves
// in-process tools instead of an MCP server.
type ToolsConfig struct {
	Provider     string `json:"provider"`
	SearchAPIKey string `json:"-"`
	SearchAPIURL string `json:"search_api_url"`
}

// UsesMCP reports whether capabilities come from an MCP server.
func (c ToolsConfig) UsesMCP() bool {
	return c.Provider == "" || strings.EqualFold(c.Provider, ProviderMCP)
}

// AgentConfig holds the configuration for the orchestration loop
type AgentConfig struct {
	MaxIterations int `json:"max_iterations"`
}

// HTTPConfig holds the configuration for the HTTP front end
type HTTPConfig struct {
	Addr        string `json:"addr"`
	AllowOrigin string `json:"allow_origin"`
}

type LogConfig struct {
	Level string `json:"level"`
}

// Option is a function type for configuring Config
type Option func(*Config)

const mcpEnvPrefix = "MCP_SERVER_ENV_"

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	loadDotEnv(getEnvString("DOTENV_FILE", ".env"))

	config := &Config{
		Engine: EngineConfig{
			Provider:         getEnvString("ENGINE_PROVIDER", engine.ProviderAnthropic),
			AnthropicAPIKey:  getEnvString("ANTHROPIC_API_KEY", ""),
			AnthropicModel:   getEnvString("ANTHROPIC_MODEL", engine.DefaultAnthropicModel),
			AnthropicBaseURL: getEnvString("ANTHROPIC_BASE_URL", ""),
			OpenAIAPIKey:     getEnvString("OPENAI_API_KEY", ""),
			OpenAIAPIURL:     getEnvString("OPENAI_API_URL", engine.DefaultOpenAIURL),
			OpenAIModel:      getEnvString("OPENAI_MODEL", engine.DefaultOpenAIModel),
			MaxTokens:        getEnvInt("ENGINE_MAX_TOKENS", engine.DefaultMaxTokens),
			Timeout:          getEnvInt("ENGINE_TIMEOUT", engine.DefaultTimeout),
			SystemPrompt:     getEnvString("ENGINE_SYSTEM_PROMPT", ""),
		},
		MCP: MCPConfig{
			Command:        getEnvString("MCP_SERVER_COMMAND", "npx"),
			Args:           strings.Fields(getEnvString("MCP_SERVER_ARGS", "n8n-mcp")),
			Env:            getEnvWithPrefix(mcpEnvPrefix),
			HealthCron:     getEnvStringAllowEmpty("MCP_HEALTH_CRON", "@every 30s"),
			ConnectRetries: getEnvInt("MCP_CONNECT_RETRIES", 3),
			ConnectTimeout: getEnvInt("MCP_CONNECT_TIMEOUT", 60),
		},
		Tools: ToolsConfig{
			Provider:     getEnvString("CAPABILITY_PROVIDER", ProviderMCP),
			SearchAPIKey: getEnvString("SEARCH_API_KEY", ""),
			SearchAPIURL: getEnvString("SEARCH_API_URL", tools.DefaultSearchURL),
		},
		Agent: AgentConfig{
			MaxIterations: getEnvInt("AGENT_MAX_ITERATIONS", 5),
		},
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":"+getEnvString("PORT", "8000")),
			AllowOrigin: getEnvString("CORS_ALLOW_ORIGIN", "*"),
		},
		Log: LogConfig{
			Level: getEnvString("LOG_LEVEL", "info"),
		},
	}

	if path := getEnvString("AGENT_CONFIG_FILE", ""); path != "" {
		settings, err := LoadSettingsFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		WithFileSettings(settings)(config)
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: engine=%s capabilities=%s mcp=%q health=%q http=%s max_iterations=%d",
		config.Engine.Provider, config.Tools.Provider, config.MCP.Command+" "+strings.Join(config.MCP.Args, " "),
		config.MCP.HealthCron, config.HTTP.Addr, config.Agent.MaxIterations)

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	switch strings.ToLower(c.Engine.Provider) {
	case engine.ProviderAnthropic, engine.ProviderOpenAI:
	default:
		return fmt.Errorf("ENGINE_PROVIDER must be %q or %q, got %q",
			engine.ProviderAnthropic, engine.ProviderOpenAI, c.Engine.Provider)
	}
	if c.Engine.MaxTokens < 1 {
		return fmt.Errorf("ENGINE_MAX_TOKENS must be greater than 0")
	}
	if c.Engine.Timeout < 1 {
		return fmt.Errorf("ENGINE_TIMEOUT must be greater than 0")
	}
	switch strings.ToLower(c.Tools.Provider) {
	case "", ProviderMCP, ProviderLocal:
	default:
		return fmt.Errorf("CAPABILITY_PROVIDER must be %q or %q, got %q",
			ProviderMCP, ProviderLocal, c.Tools.Provider)
	}
	if c.Tools.UsesMCP() && strings.TrimSpace(c.MCP.Command) == "" {
		return fmt.Errorf("MCP_SERVER_COMMAND is required")
	}
	if c.MCP.HealthCron != "" {
		if _, err := cron.ParseStandard(c.MCP.HealthCron); err != nil {
			return fmt.Errorf("invalid MCP_HEALTH_CRON: %w", err)
		}
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("AGENT_MAX_ITERATIONS must be greater than 0")
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	return nil
}

// EngineConfigured reports whether the selected provider has a credential.
func (c *Config) EngineConfigured() bool {
	if strings.EqualFold(c.Engine.Provider, engine.ProviderOpenAI) {
		return c.Engine.OpenAIAPIKey != ""
	}
	return c.Engine.AnthropicAPIKey != ""
}

// loadDotEnv loads path into the environment without overriding variables
// that are already set.
func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("Failed to load %s: %v", path, err)
	}
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvStringAllowEmpty distinguishes an unset variable from one set to ""
func getEnvStringAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvWithPrefix collects every variable starting with prefix, keyed by
// the remainder of its name
func getEnvWithPrefix(prefix string) map[string]string {
	env := make(map[string]string)
	keys := make([]string, 0)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
			continue
		}
		env[strings.TrimPrefix(key, prefix)] = value
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		log.Debug("Passing %d variables to the MCP server: %s", len(keys), strings.Join(keys, ", "))
	}
	return env
}
