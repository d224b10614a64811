package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// LocalProvider serves Tool implementations in-process. It satisfies Provider,
// so it can stand in for a remote capability provider.
type LocalProvider struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewLocalProvider creates an empty provider
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool.
// Returns an error if a tool with the same name already exists
func (p *LocalProvider) Register(tool Tool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := tool.Name()
	if _, exists := p.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	p.tools[name] = tool
	p.order = append(p.order, name)
	return nil
}

// Get retrieves a tool by name
func (p *LocalProvider) Get(name string) (Tool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tool, exists := p.tools[name]
	return tool, exists
}

// Count returns the number of registered tools
func (p *LocalProvider) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tools)
}

// ListTools returns descriptors in registration order
func (p *LocalProvider) ListTools(_ context.Context) ([]Descriptor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	descriptors := make([]Descriptor, 0, len(p.order))
	for _, name := range p.order {
		tool := p.tools[name]
		descriptors = append(descriptors, Descriptor{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Parameters(),
		})
	}
	return descriptors, nil
}

func (p *LocalProvider) CallTool(ctx context.Context, name string, args json.RawMessage) (ToolResult, error) {
	tool, exists := p.Get(name)
	if !exists {
		return ToolResult{}, fmt.Errorf("tool %q not found", name)
	}
	return tool.Execute(ctx, args)
}
