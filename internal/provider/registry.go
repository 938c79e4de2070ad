package provider

import (
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/cloudbill/cloudbill/internal/types"
)

// Registry holds the configured adapters keyed by provider.
type Registry struct {
	adapters map[types.Provider]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[types.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Get resolves the adapter for a provider.
func (r *Registry) Get(p types.Provider) (Adapter, error) {
	a, ok := r.adapters[p]
	if !ok {
		return nil, ierr.NewErrorf("no adapter registered for provider %s", p).
			WithHint("Provider is not configured").
			Mark(ierr.ErrNotFound)
	}
	return a, nil
}

// Providers lists the registered providers.
func (r *Registry) Providers() []types.Provider {
	out := make([]types.Provider, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}
