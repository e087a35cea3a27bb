package connector

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the process-wide map from system-family name to Connector.
// Populated once at startup; read-mostly afterwards.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds a connector under its family name. Registering the same name
// twice is a programmer error and panics, matching startup-only usage.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if name == "" {
		panic("connector: Register called with empty name")
	}
	if _, exists := r.connectors[name]; exists {
		panic(fmt.Sprintf("connector: duplicate registration for %q", name))
	}
	r.connectors[name] = c
}

// Get looks up a connector by family name.
func (r *Registry) Get(name string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.connectors[name]
	return c, ok
}

// Names returns the registered family names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
