package usecase

import (
	"momo-gateway/internal/domain/model"
	"momo-gateway/internal/domain/ports/adapter"
)

// Registry is the explicit provider table the gateway is constructed with:
// built once at process start, passed by reference, never mutated after.
// Registration order is preserved; detection heuristics depend on it.
type Registry struct {
	order    []model.Provider
	adapters map[model.Provider]adapter.ProviderAdapter
	configs  map[model.Provider]model.ProviderConfig
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[model.Provider]adapter.ProviderAdapter),
		configs:  make(map[model.Provider]model.ProviderConfig),
	}
}

func (r *Registry) Register(p model.Provider, cfg model.ProviderConfig, ad adapter.ProviderAdapter) {
	if _, exists := r.adapters[p]; !exists {
		r.order = append(r.order, p)
	}
	r.adapters[p] = ad
	r.configs[p] = cfg
}

func (r *Registry) Adapter(p model.Provider) (adapter.ProviderAdapter, bool) {
	ad, ok := r.adapters[p]
	return ad, ok
}

func (r *Registry) Config(p model.Provider) (model.ProviderConfig, bool) {
	cfg, ok := r.configs[p]
	return cfg, ok
}

// Providers returns the registered provider keys in registration order.
func (r *Registry) Providers() []model.Provider {
	out := make([]model.Provider, len(r.order))
	copy(out, r.order)
	return out
}
