package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

var globalPrototypes = struct {
	mu         sync.RWMutex
	prototypes map[string]Provider
}{prototypes: make(map[string]Provider)}

// RegisterPrototype makes a provider type available to every registry
// created afterwards. It is meant to be called from init().
func RegisterPrototype(providerType string, prototype Provider) {
	globalPrototypes.mu.Lock()
	defer globalPrototypes.mu.Unlock()
	globalPrototypes.prototypes[providerType] = prototype
}

// Registry holds provider prototypes and configured instances.
type Registry struct {
	mu         sync.RWMutex
	prototypes map[string]Provider
	instances  map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		prototypes: make(map[string]Provider),
		instances:  make(map[string]Provider),
	}
}

// GlobalRegistry returns a registry seeded with every registered prototype.
func GlobalRegistry() *Registry {
	globalPrototypes.mu.RLock()
	defer globalPrototypes.mu.RUnlock()

	r := NewRegistry()
	for name, p := range globalPrototypes.prototypes {
		r.prototypes[name] = p
	}
	return r
}

// RegisterPrototype adds a prototype to this registry only.
func (r *Registry) RegisterPrototype(providerType string, prototype Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prototypes[providerType]; exists {
		return fmt.Errorf("provider prototype %s already registered", providerType)
	}
	r.prototypes[providerType] = prototype
	return nil
}

// Create builds instance name of providerType. rawConfig is the decoded TOML
// table for the instance and is converted into the prototype's config type.
func (r *Registry) Create(name, providerType string, rawConfig map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prototype, ok := r.prototypes[providerType]
	if !ok {
		return fmt.Errorf("provider type %s not found", providerType)
	}

	cfg, err := convertConfig(prototype.ConfigType(), rawConfig)
	if err != nil {
		return fmt.Errorf("converting config for provider %s: %w", name, err)
	}
	if v, ok := cfg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid config for provider %s: %w", name, err)
		}
	}

	p, err := prototype.Factory(name, cfg)
	if err != nil {
		return fmt.Errorf("creating provider %s: %w", name, err)
	}
	r.instances[name] = p
	return nil
}

// Get returns a configured instance.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[name]
	return p, ok
}

// Names lists configured instances, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Types lists registered prototypes, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.prototypes))
	for t := range r.prototypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// convertConfig round-trips raw through TOML into target.
func convertConfig(target any, raw map[string]any) (any, error) {
	if raw == nil {
		return target, nil
	}
	data, err := toml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshaling config data: %w", err)
	}
	if err := toml.Unmarshal(data, target); err != nil {
		return nil, fmt.Errorf("unmarshaling provider config: %w", err)
	}
	return target, nil
}
