package render

import (
	"fmt"
	"sync"

	"github.com/goliatone/go-formwidget/pkg/render/template"
)

// Registry stores template engines by name, keeping registration order so
// relaxed dispatch falls back deterministically.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]template.Engine
	order   []string
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]template.Engine),
	}
}

// Register adds an engine by its Name(). Duplicate names return an error.
func (r *Registry) Register(engine template.Engine) error {
	if engine == nil {
		return fmt.Errorf("render: engine is required")
	}
	name := engine.Name()
	if name == "" {
		return fmt.Errorf("render: engine name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("render: engine %q already registered", name)
	}

	r.engines[name] = engine
	r.order = append(r.order, name)
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(engine template.Engine) {
	if err := r.Register(engine); err != nil {
		panic(err)
	}
}

// Get retrieves an engine by name.
func (r *Registry) Get(name string) (template.Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("render: engine %q not found", name)
	}
	return engine, nil
}

// MustGet panics if the engine is missing.
func (r *Registry) MustGet(name string) template.Engine {
	engine, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return engine
}

// List returns engine names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Has reports whether an engine is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.engines[name]
	return ok
}
