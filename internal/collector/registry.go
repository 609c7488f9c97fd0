package collector

import (
	"sort"
	"sync"

	"github.com/newthinker/swingsim/internal/core"
)

// Registry manages price providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider, replacing any provider of the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Chain resolves names into a provider. A single name returns that provider;
// several names return a Fallback trying them in order.
func (r *Registry) Chain(names ...string) (Provider, error) {
	if len(names) == 0 {
		return nil, core.Errorf(core.ErrConfigMissing, "no provider named")
	}
	chain := make([]Provider, 0, len(names))
	for _, name := range names {
		p, ok := r.Get(name)
		if !ok {
			return nil, core.Errorf(core.ErrConfigInvalid, "unknown provider: %q", name)
		}
		chain = append(chain, p)
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return NewFallback(chain...), nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
