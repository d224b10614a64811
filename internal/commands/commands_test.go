package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibe8n/agentloop/internal/agent"
	"github.com/vibe8n/agentloop/internal/agenterr"
	"github.com/vibe8n/agentloop/internal/config"
	"github.com/vibe8n/agentloop/internal/mcp"
)

type stubClient struct{}

func (stubClient) Initialize(context.Context, mcplib.InitializeRequest) (*mcplib.InitializeResult, error) {
	return &mcplib.InitializeResult{ServerInfo: mcplib.Implementation{Name: "stub"}}, nil
}

func (stubClient) ListTools(context.Context, mcplib.ListToolsRequest) (*mcplib.ListToolsResult, error) {
	return &mcplib.ListToolsResult{Tools: []mcplib.Tool{{Name: "list_workflows", Description: "List\nworkflows"}}}, nil
}

func (stubClient) CallTool(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return &mcplib.CallToolResult{}, nil
}

func (stubClient) Ping(context.Context) error { return nil }
func (stubClient) Close() error               { return nil }

func useDialer(t *testing.T, d mcp.Dialer) {
	t.Helper()
	prev := dialer
	dialer = d
	t.Cleanup(func() { dialer = prev })
}

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{Provider: "anthropic", MaxTokens: 100, Timeout: 5},
		MCP:    config.MCPConfig{Command: "stub-mcp"},
		Agent:  config.AgentConfig{MaxIterations: 5},
	}
}

func TestNewRootCmd(t *testing.T) {
	root := NewRootCmd("v1.2.3")
	assert.Equal(t, "v1.2.3", root.Version)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "ask", "tools"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestStartRuntime_WithProvider(t *testing.T) {
	useDialer(t, func(context.Context, mcp.ServerConfig) (mcp.Client, error) {
		return stubClient{}, nil
	})

	rt, err := startRuntime(context.Background(), testConfig(), true)
	require.NoError(t, err)
	defer rt.Close()

	assert.True(t, rt.agent.Ready())
	assert.False(t, rt.agent.EngineConfigured())

	capabilities, err := rt.agent.Capabilities(context.Background())
	require.NoError(t, err)
	require.Len(t, capabilities, 1)
	assert.Equal(t, "list_workflows", capabilities[0].Name)

	require.NoError(t, rt.Close())
	assert.False(t, rt.agent.Ready())
}

func TestStartRuntime_WithoutProvider(t *testing.T) {
	useDialer(t, func(context.Context, mcp.ServerConfig) (mcp.Client, error) {
		return nil, errors.New("npx: command not found")
	})

	rt, err := startRuntime(context.Background(), testConfig(), false)
	require.NoError(t, err)
	assert.False(t, rt.agent.Ready())
	assert.NoError(t, rt.Close())

	_, err = startRuntime(context.Background(), testConfig(), true)
	require.Error(t, err)
	assert.True(t, agenterr.IsErrorType(err, agenterr.ErrProviderUnavailable))
}

func TestStartRuntime_LocalProvider(t *testing.T) {
	useDialer(t, func(context.Context, mcp.ServerConfig) (mcp.Client, error) {
		t.Fatal("local provider must not dial an MCP server")
		return nil, nil
	})

	cfg := testConfig()
	cfg.Tools = config.ToolsConfig{Provider: config.ProviderLocal, SearchAPIKey: "tvly-test"}
	rt, err := startRuntime(context.Background(), cfg, true)
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.session)
	assert.True(t, rt.agent.Ready())

	capabilities, err := rt.agent.Capabilities(context.Background())
	require.NoError(t, err)
	require.Len(t, capabilities, 1)
	assert.Equal(t, "web_search", capabilities[0].Name)

	cfg.Tools.SearchAPIKey = ""
	rt, err = startRuntime(context.Background(), cfg, true)
	require.NoError(t, err)
	capabilities, err = rt.agent.Capabilities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, capabilities)
}

func TestStartRuntime_UnknownEngine(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Provider = "llama"
	_, err := startRuntime(context.Background(), cfg, false)
	require.Error(t, err)
	assert.True(t, agenterr.IsErrorType(err, agenterr.ErrEngineConfig))
}

func TestPrintTrace(t *testing.T) {
	resp := &agent.Response{
		Events: []agent.Event{
			{Payload: agent.Thought{Text: "Processing request with 1 available tools..."}},
			{Payload: agent.ToolCall{ID: "c1", Tool: "search", Arguments: json.RawMessage(`{"query":"x"}`)}},
			{Payload: agent.ToolResult{ID: "c1", Tool: "search", Content: "timeout", Error: true}},
			{Payload: agent.AssistantMessage{Text: "Search is down."}},
		},
		Final: "Search is down.",
	}

	var buf bytes.Buffer
	require.NoError(t, printTrace(&buf, resp))
	assert.Equal(t, `[thought] Processing request with 1 available tools...
[tool_call] search {"query":"x"}
[tool_result] search (error): timeout
[assistant_message] Search is down.

Search is down.
`, buf.String())
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "List", firstLine("List\nworkflows"))
	assert.Equal(t, "plain", firstLine("plain"))
	assert.Equal(t, "", firstLine(""))
}
