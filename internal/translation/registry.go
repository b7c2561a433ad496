package translation

import (
	"fmt"
	"sort"
	"strings"
)

// Registry stores translation providers keyed by normalized name, so call
// sites dispatch through a lookup instead of provider-name conditionals.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// NewDefaultRegistry registers the built-in provider clients.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.Register(NewNiutransProvider())
	_ = registry.Register(NewDeepLProvider())
	_ = registry.Register(NewTencentProvider())
	return registry
}

// Register adds one provider.
func (r *Registry) Register(provider Provider) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if provider == nil {
		return fmt.Errorf("provider is nil")
	}
	name := normalizeProviderName(provider.Name())
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	r.providers[name] = provider
	return nil
}

// Provider resolves a provider by name.
func (r *Registry) Provider(name string) (Provider, error) {
	if r == nil || len(r.providers) == 0 {
		return nil, fmt.Errorf("no translation providers are registered")
	}
	provider, ok := r.providers[normalizeProviderName(name)]
	if !ok {
		return nil, fmt.Errorf("translation provider %q is not registered (available: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	return provider, nil
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
