// Package mcp holds the session handle to the external capability provider:
// one MCP stdio session per process, shared by every request.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	mcpclient "github.com/mark3labs/mcp-go/client"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/vibe8n/agentloop/internal/agenterr"
	"github.com/vibe8n/agentloop/internal/tools"
	"github.com/vibe8n/agentloop/pkg/log"
)

const (
	clientName    = "agentloop"
	clientVersion = "1.0.0"

	// maxToolPages guards against a provider that never stops paginating
	maxToolPages = 50
)

// Client is the subset of the mcp-go client the session uses.
type Client interface {
	Initialize(ctx context.Context, request mcplib.InitializeRequest) (*mcplib.InitializeResult, error)
	ListTools(ctx context.Context, request mcplib.ListToolsRequest) (*mcplib.ListToolsResult, error)
	CallTool(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// ServerConfig describes how to launch the provider process.
type ServerConfig struct {
	Command string
	Args    []string
	// Env is added to the inherited environment of the provider process
	Env map[string]string

	ConnectRetries uint64
	ConnectTimeout time.Duration
}

func (c ServerConfig) environ() []string {
	env := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

func (c ServerConfig) String() string {
	return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
}

// Dialer starts a provider process and returns an uninitialized client.
type Dialer func(ctx context.Context, cfg ServerConfig) (Client, error)

// StdioDialer launches cfg.Command and speaks MCP over its stdin/stdout.
func StdioDialer(_ context.Context, cfg ServerConfig) (Client, error) {
	c, err := mcpclient.NewStdioMCPClient(cfg.Command, cfg.environ(), cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cfg.Command, err)
	}
	return c, nil
}

// Session is a live, initialized connection to the capability provider.
// It implements tools.Provider and tools.HealthReporter.
type Session struct {
	client  Client
	server  string
	healthy atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

var (
	_ tools.Provider       = (*Session)(nil)
	_ tools.HealthReporter = (*Session)(nil)
)

// Connect starts the provider and runs the MCP handshake, retrying with
// exponential backoff until cfg.ConnectRetries is exhausted or ctx ends.
func Connect(ctx context.Context, cfg ServerConfig, dial Dialer) (*Session, error) {
	if dial == nil {
		dial = StdioDialer
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	if cfg.ConnectTimeout > 0 {
		b.MaxElapsedTime = cfg.ConnectTimeout
	}

	var session *Session
	operation := func() error {
		if strings.TrimSpace(cfg.Command) == "" {
			return backoff.Permanent(errors.New("no MCP server command configured"))
		}

		client, err := dial(ctx, cfg)
		if err != nil {
			return err
		}

		info, err := initialize(ctx, client)
		if err != nil {
			_ = client.Close()
			return err
		}

		session = NewSession(client, info.ServerInfo.Name)
		return nil
	}

	notify := func(err error, next time.Duration) {
		log.Warn("MCP server %q not ready: %v (retrying in %s)", cfg.String(), err, next)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, cfg.ConnectRetries), ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, agenterr.Wrap(err, agenterr.ErrProviderUnavailable, "failed to connect to MCP server").
			WithContext("command", cfg.String())
	}

	log.Info("Connected to MCP server %s (%s)", session.server, cfg.String())
	return session, nil
}

func initialize(ctx context.Context, client Client) (*mcplib.InitializeResult, error) {
	req := mcplib.InitializeRequest{}
	req.Params.ProtocolVersion = mcplib.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcplib.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}

	result, err := client.Initialize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return result, nil
}

// NewSession wraps an initialized client. The session starts healthy.
func NewSession(client Client, server string) *Session {
	s := &Session{client: client, server: server}
	s.healthy.Store(true)
	return s
}

func (s *Session) Server() string { return s.server }

// Healthy reports the last known connection state.
func (s *Session) Healthy() bool {
	return s.healthy.Load()
}

// setHealthy stores v and reports whether the state changed.
func (s *Session) setHealthy(v bool) bool {
	return s.healthy.Swap(v) != v
}

func (s *Session) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// ListTools returns every tool the provider offers, following pagination.
func (s *Session) ListTools(ctx context.Context) ([]tools.Descriptor, error) {
	var (
		descriptors []tools.Descriptor
		req         mcplib.ListToolsRequest
	)

	for page := 0; page < maxToolPages; page++ {
		result, err := s.client.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("list tools: %w", err)
		}

		for _, tool := range result.Tools {
			d, err := descriptorOf(tool)
			if err != nil {
				return nil, err
			}
			descriptors = append(descriptors, d)
		}

		if result.NextCursor == "" {
			return descriptors, nil
		}
		req.Params.Cursor = result.NextCursor
	}

	log.Warn("MCP server %s still paginating after %d pages, truncating tool list", s.server, maxToolPages)
	return descriptors, nil
}

func descriptorOf(tool mcplib.Tool) (tools.Descriptor, error) {
	schema := tool.RawInputSchema
	if len(schema) == 0 {
		encoded, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return tools.Descriptor{}, fmt.Errorf("encode input schema of %q: %w", tool.Name, err)
		}
		schema = encoded
	}

	return tools.Descriptor{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: schema,
	}, nil
}

// CallTool invokes name once. Text items of the result are joined by
// newlines; other content kinds are skipped.
func (s *Session) CallTool(ctx context.Context, name string, args json.RawMessage) (tools.ToolResult, error) {
	arguments, err := tools.DecodeArguments(args)
	if err != nil {
		return tools.ToolResult{}, err
	}

	req := mcplib.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = arguments

	result, err := s.client.CallTool(ctx, req)
	if err != nil {
		return tools.ToolResult{}, err
	}

	return tools.ToolResult{
		Content: textOf(result.Content),
		IsError: result.IsError,
	}, nil
}

func textOf(content []mcplib.Content) string {
	parts := make([]string, 0, len(content))
	for _, c := range content {
		switch item := c.(type) {
		case mcplib.TextContent:
			parts = append(parts, item.Text)
		case *mcplib.TextContent:
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Close shuts the provider session down. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.healthy.Store(false)
		s.closeErr = s.client.Close()
		log.Info("MCP session %s closed", s.server)
	})
	return s.closeErr
}
