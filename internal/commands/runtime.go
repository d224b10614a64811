package commands

import (
	"context"
	"errors"

	"github.com/vibe8n/agentloop/internal/agent"
	"github.com/vibe8n/agentloop/internal/config"
	"github.com/vibe8n/agentloop/internal/engine"
	"github.com/vibe8n/agentloop/internal/mcp"
	"github.com/vibe8n/agentloop/internal/tools"
	"github.com/vibe8n/agentloop/pkg/log"
)

// dialer starts the capability provider; tests replace it.
var dialer mcp.Dialer = mcp.StdioDialer

// runtime is everything a command needs for one process lifetime.
type runtime struct {
	session  *mcp.Session
	registry *tools.Registry
	engine   engine.Engine
	agent    *agent.Agent
}

// startRuntime opens the capability provider and builds the agent around it.
// For MCP, a failed connection is returned only when requireProvider is set;
// otherwise the runtime starts without a provider and reports itself not
// ready.
func startRuntime(ctx context.Context, cfg *config.Config, requireProvider bool) (*runtime, error) {
	eng, err := engine.New(cfg.Engine.Settings())
	if err != nil {
		return nil, err
	}
	if !eng.Configured() {
		log.Warn("Engine %s has no API key; chat requests will fail until one is set", eng.Name())
	}

	rt := &runtime{engine: eng}

	// a nil *mcp.Session must not become a non-nil tools.Provider
	var provider tools.Provider
	if cfg.Tools.UsesMCP() {
		session, err := mcp.Connect(ctx, cfg.MCP.ServerConfig(), dialer)
		if err != nil {
			if requireProvider || errors.Is(err, context.Canceled) {
				return nil, err
			}
			log.Error("Starting without capability provider: %v", err)
		} else {
			rt.session = session
			provider = session
		}
	} else {
		local, err := newLocalProvider(cfg.Tools)
		if err != nil {
			return nil, err
		}
		log.Info("Serving %d local tools", local.Count())
		provider = local
	}

	rt.registry = tools.NewRegistry(provider)
	rt.agent = agent.NewAgent(eng, rt.registry, cfg.Agent.MaxIterations)
	return rt, nil
}

// newLocalProvider builds the in-process provider. web_search is only offered
// when a search key is configured.
func newLocalProvider(cfg config.ToolsConfig) (*tools.LocalProvider, error) {
	p := tools.NewLocalProvider()
	if cfg.SearchAPIKey == "" {
		log.Warn("SEARCH_API_KEY is not set; web_search is disabled")
		return p, nil
	}
	if err := p.Register(tools.NewWebSearchTool(cfg.SearchAPIKey, cfg.SearchAPIURL)); err != nil {
		return nil, err
	}
	return p, nil
}

func (rt *runtime) Close() error {
	if rt.session == nil {
		return nil
	}
	return rt.session.Close()
}
