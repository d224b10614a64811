package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibe8n/agentloop/internal/engine"
)

var configEnvKeys = []string{
	"ENGINE_PROVIDER", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "ANTHROPIC_BASE_URL",
	"OPENAI_API_KEY", "OPENAI_API_URL", "OPENAI_MODEL", "ENGINE_MAX_TOKENS", "ENGINE_TIMEOUT",
	"ENGINE_SYSTEM_PROMPT", "MCP_SERVER_COMMAND", "MCP_SERVER_ARGS", "MCP_HEALTH_CRON",
	"MCP_CONNECT_RETRIES", "MCP_CONNECT_TIMEOUT", "AGENT_MAX_ITERATIONS", "HTTP_ADDR", "PORT",
	"CORS_ALLOW_ORIGIN", "LOG_LEVEL", "AGENT_CONFIG_FILE", "CAPABILITY_PROVIDER", "SEARCH_API_KEY",
	"SEARCH_API_URL",
}

// cleanEnv unsets every variable the loader reads and points DOTENV_FILE at
// a file that does not exist.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		unsetEnv(t, key)
	}
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	// registers the restore
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestNewFromEnv_Defaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, engine.ProviderAnthropic, cfg.Engine.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Engine.AnthropicModel)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Engine.OpenAIAPIURL)
	assert.Equal(t, "gpt-4o-mini", cfg.Engine.OpenAIModel)
	assert.Equal(t, 4096, cfg.Engine.MaxTokens)
	assert.Equal(t, 120, cfg.Engine.Timeout)

	assert.Equal(t, "npx", cfg.MCP.Command)
	assert.Equal(t, []string{"n8n-mcp"}, cfg.MCP.Args)
	assert.Equal(t, "@every 30s", cfg.MCP.HealthCron)

	assert.Equal(t, ProviderMCP, cfg.Tools.Provider)
	assert.True(t, cfg.Tools.UsesMCP())
	assert.Equal(t, "https://api.tavily.com/search", cfg.Tools.SearchAPIURL)

	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, ":8000", cfg.HTTP.Addr)
	assert.Equal(t, "*", cfg.HTTP.AllowOrigin)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewFromEnv_MissingCredentialIsNotAnError(t *testing.T) {
	cleanEnv(t)

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.EngineConfigured())

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	cfg, err = NewFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.EngineConfigured())

	t.Setenv("ENGINE_PROVIDER", "openai")
	cfg, err = NewFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.EngineConfigured())
}

func TestNewFromEnv_FromEnv(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ENGINE_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MCP_SERVER_COMMAND", "node")
	t.Setenv("MCP_SERVER_ARGS", "  dist/index.js   --stdio ")
	t.Setenv("MCP_SERVER_ENV_N8N_API_URL", "http://localhost:5678")
	t.Setenv("MCP_SERVER_ENV_N8N_API_KEY", "n8n-key")
	t.Setenv("MCP_HEALTH_CRON", "")
	t.Setenv("MCP_CONNECT_RETRIES", "7")
	t.Setenv("PORT", "9000")
	t.Setenv("AGENT_MAX_ITERATIONS", "8")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Engine.Provider)
	assert.True(t, cfg.EngineConfigured())
	assert.Equal(t, []string{"dist/index.js", "--stdio"}, cfg.MCP.Args)
	assert.Equal(t, map[string]string{
		"N8N_API_URL": "http://localhost:5678",
		"N8N_API_KEY": "n8n-key",
	}, cfg.MCP.Env)
	assert.Empty(t, cfg.MCP.HealthCron)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 8, cfg.Agent.MaxIterations)

	server := cfg.MCP.ServerConfig()
	assert.Equal(t, "node", server.Command)
	assert.Equal(t, uint64(7), server.ConnectRetries)
	assert.Equal(t, 60*time.Second, server.ConnectTimeout)

	t.Setenv("HTTP_ADDR", "127.0.0.1:7000")
	cfg, err = NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.HTTP.Addr)
}

func TestNewFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"unknown provider", "ENGINE_PROVIDER", "llama", "ENGINE_PROVIDER"},
		{"iterations", "AGENT_MAX_ITERATIONS", "0", "AGENT_MAX_ITERATIONS"},
		{"cron", "MCP_HEALTH_CRON", "every tuesday", "MCP_HEALTH_CRON"},
		{"max tokens", "ENGINE_MAX_TOKENS", "-1", "ENGINE_MAX_TOKENS"},
		{"capability provider", "CAPABILITY_PROVIDER", "grpc", "CAPABILITY_PROVIDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := NewFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewFromEnv_LocalProvider(t *testing.T) {
	cleanEnv(t)
	t.Setenv("CAPABILITY_PROVIDER", "local")
	t.Setenv("SEARCH_API_KEY", "tvly-test")
	t.Setenv("MCP_SERVER_COMMAND", " ")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.Tools.UsesMCP())
	assert.Equal(t, "tvly-test", cfg.Tools.SearchAPIKey)

	t.Setenv("CAPABILITY_PROVIDER", "mcp")
	_, err = NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MCP_SERVER_COMMAND")
}

func TestNewFromEnv_DotEnv(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ANTHROPIC_MODEL=claude-from-dotenv\nOPENAI_MODEL=gpt-from-dotenv\n"), 0o600))
	t.Setenv("DOTENV_FILE", path)
	t.Setenv("OPENAI_MODEL", "gpt-from-env")
	// loaded values are removed again after the test
	unsetEnv(t, "ANTHROPIC_MODEL")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "claude-from-dotenv", cfg.Engine.AnthropicModel)
	assert.Equal(t, "gpt-from-env", cfg.Engine.OpenAIModel)
}

func TestEngineConfig_Settings(t *testing.T) {
	c := EngineConfig{
		Provider:        "openai",
		AnthropicAPIKey: "a",
		OpenAIAPIKey:    "o",
		OpenAIAPIURL:    "https://example.test/v1",
		OpenAIModel:     "m",
		MaxTokens:       100,
		Timeout:         9,
		SystemPrompt:    "be brief",
	}

	got := c.Settings()
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, engine.OpenAIConfig{
		APIKey:       "o",
		APIURL:       "https://example.test/v1",
		Model:        "m",
		MaxTokens:    100,
		Timeout:      9,
		SystemPrompt: "be brief",
	}, got.OpenAI)
	assert.Equal(t, "a", got.Anthropic.APIKey)
	assert.Equal(t, "be brief", got.Anthropic.SystemPrompt)
}
