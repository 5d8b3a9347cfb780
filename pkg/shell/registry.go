package shell

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/bartr-dev/bartr/pkg/component"
)

// ErrComponentNotFound is returned when no loader is registered for a name.
var ErrComponentNotFound = errors.New("component not found")

// Loader constructs a component bound to host. It may block, for example to
// fetch data the first render needs.
type Loader func(ctx context.Context, host component.Host) (component.Component, error)

// Registry maps component names to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register adds or replaces the loader for name.
func (r *Registry) Register(name string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[name] = loader
}

// Lookup returns the loader for name.
func (r *Registry) Lookup(name string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[name]
	return l, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadError describes a failed component load.
type LoadError struct {
	Component string
	Err       error
}

func (e *LoadError) Error() string {
	if errors.Is(e.Err, ErrComponentNotFound) {
		return fmt.Sprintf("Component '%s' not found", e.Component)
	}
	return fmt.Sprintf("Failed to load %s component", e.Component)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load runs the loader for name. Unknown names, loader errors, nil results
// and panics are all reported as *LoadError.
func (r *Registry) Load(ctx context.Context, name string, host component.Host) (c component.Component, err error) {
	loader, ok := r.Lookup(name)
	if !ok {
		return nil, &LoadError{Component: name, Err: ErrComponentNotFound}
	}
	defer func() {
		if p := recover(); p != nil {
			c = nil
			err = &LoadError{Component: name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	c, err = loader(ctx, host)
	if err != nil {
		return nil, &LoadError{Component: name, Err: err}
	}
	if c == nil {
		return nil, &LoadError{Component: name, Err: ErrComponentNotFound}
	}
	return c, nil
}
