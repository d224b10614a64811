package tools

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vibe8n/agentloop/internal/agenterr"
)

// listTimeout bounds a shared listing once it no longer follows any one
// caller's context.
const listTimeout = 30 * time.Second

// Registry is the capability registry adapter: it asks the provider for its
// current capabilities. Nothing is cached; concurrent callers share one
// in-flight query.
type Registry struct {
	provider Provider
	group    singleflight.Group
}

// NewRegistry creates a registry over provider. A nil provider is allowed and
// reported as unavailable on use.
func NewRegistry(provider Provider) *Registry {
	return &Registry{provider: provider}
}

// Provider returns the provider the registry queries.
func (r *Registry) Provider() Provider {
	return r.provider
}

// Available reports whether a provider is attached and, when it tracks
// health, currently healthy.
func (r *Registry) Available() bool {
	if r.provider == nil {
		return false
	}
	if hr, ok := r.provider.(HealthReporter); ok {
		return hr.Healthy()
	}
	return true
}

// ListCapabilities returns the provider's capabilities in provider order.
// It fails with ErrProviderUnavailable when the provider is absent, unhealthy,
// or the query itself fails, and with ctx.Err() when ctx ends first.
func (r *Registry) ListCapabilities(ctx context.Context) ([]Descriptor, error) {
	if !r.Available() {
		return nil, agenterr.New(agenterr.ErrProviderUnavailable, "capability provider not connected")
	}

	// The flight outlives whichever caller started it, so a canceled caller
	// only abandons its own wait.
	ch := r.group.DoChan("list", func() (any, error) {
		listCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listTimeout)
		defer cancel()
		return r.provider.ListTools(listCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, agenterr.Wrap(res.Err, agenterr.ErrProviderUnavailable, "failed to list capabilities")
		}
		return slices.Clone(res.Val.([]Descriptor)), nil
	}
}
