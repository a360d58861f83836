package plugin

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a fresh, uninitialized plugin instance.
type Factory func() Plugin

// Catalog maps plugin kinds (e.g. "gemini") to factories. Plugins are known
// statically; the catalog is filled at startup.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a factory under kind.
func (c *Catalog) Register(kind string, factory Factory) error {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return fmt.Errorf("plugin kind required")
	}
	if factory == nil {
		return fmt.Errorf("plugin factory required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[kind]; exists {
		return fmt.Errorf("plugin kind %s already registered", kind)
	}
	c.factories[kind] = factory
	return nil
}

// New builds a plugin of the given kind.
func (c *Catalog) New(kind string) (Plugin, error) {
	c.mu.RLock()
	factory, ok := c.factories[kind]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown plugin kind %q (known: %s)", kind, strings.Join(c.Kinds(), ", "))
	}
	p := factory()
	if p == nil {
		return nil, fmt.Errorf("factory for plugin kind %s returned nil", kind)
	}
	return p, nil
}

// Kinds returns the registered kinds, sorted.
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]string, 0, len(c.factories))
	for kind := range c.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
