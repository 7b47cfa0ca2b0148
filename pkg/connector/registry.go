package connector

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry manages connector factory registration and discovery.
// It provides thread-safe access to registered factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// DefaultRegistry is the global connector registry.
// Connector packages register their factories via init() functions.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a connector factory to the registry.
// This is typically called from connector package init() functions.
func (r *Registry) Register(f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := f.Name()
	if name == "" {
		return ErrValidation("connector factory has no name")
	}
	if _, exists := r.factories[name]; exists {
		return ErrValidation(fmt.Sprintf("connector already registered: %s", name))
	}

	r.factories[name] = f
	return nil
}

// Get retrieves a registered factory by name.
func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, exists := r.factories[name]
	if !exists {
		return nil, ErrNotFound("connector", name)
	}
	return f, nil
}

// Create builds a connector by name using its registered factory.
func (r *Registry) Create(ctx context.Context, name string, config map[string]interface{}) (Connector, error) {
	f, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	c, err := f.Create(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector %s: %w", name, err)
	}
	return c, nil
}

// List returns all registered connector names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister removes a factory from the registry.
// This is mainly useful for testing.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, name)
}

// Global convenience functions that use DefaultRegistry

// Register adds a factory to the default registry.
func Register(f Factory) error {
	return DefaultRegistry.Register(f)
}

// MustRegister adds a factory to the default registry and panics on conflict.
func MustRegister(f Factory) {
	if err := DefaultRegistry.Register(f); err != nil {
		panic(err)
	}
}

// Create builds a connector from the default registry.
func Create(ctx context.Context, name string, config map[string]interface{}) (Connector, error) {
	return DefaultRegistry.Create(ctx, name, config)
}

// ListConnectors returns all connector names in the default registry.
func ListConnectors() []string {
	return DefaultRegistry.List()
}
