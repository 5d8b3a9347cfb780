package router

import (
	"sort"
	"sync"
)

// DefaultPath is the route whose component renders for unmapped paths.
const DefaultPath = "/"

// Component names of the built-in routes.
const (
	ComponentHome        = "homepage"
	ComponentMarketplace = "marketplace"
	ComponentProfile     = "profile"
	ComponentLogin       = "auth/login"
	ComponentRegister    = "auth/register"
	ComponentMessages    = "messages"
)

// DefaultRoutes returns the static route table of the application.
func DefaultRoutes() map[string]string {
	return map[string]string{
		"/":            ComponentHome,
		"/marketplace": ComponentMarketplace,
		"/profile":     ComponentProfile,
		"/login":       ComponentLogin,
		"/register":    ComponentRegister,
	}
}

// Route is a single table entry.
type Route struct {
	Path      string
	Component string
}

// Table maps canonical paths to component names. It is safe for concurrent
// use.
type Table struct {
	mu     sync.RWMutex
	routes map[string]string
}

// NewTable creates a table from routes. Keys are canonicalized; entries
// with an invalid path are skipped.
func NewTable(routes map[string]string) *Table {
	t := &Table{routes: make(map[string]string, len(routes))}
	for path, name := range routes {
		t.AddRoute(path, name)
	}
	return t
}

// AddRoute maps path to component, replacing any previous entry. It reports
// false when path cannot be canonicalized.
func (t *Table) AddRoute(path, component string) bool {
	key, err := Canonicalize(Normalize(path))
	if err != nil {
		return false
	}
	t.mu.Lock()
	t.routes[key] = component
	t.mu.Unlock()
	return true
}

// Resolve returns the component for path. Unmapped or invalid paths resolve
// to the component of DefaultPath with matched=false.
func (t *Table) Resolve(path string) (component string, matched bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if key, err := Canonicalize(Normalize(path)); err == nil {
		if name, ok := t.routes[key]; ok {
			return name, true
		}
	}
	return t.routes[DefaultPath], false
}

// Routes lists the entries sorted by path.
func (t *Table) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Route, 0, len(t.routes))
	for path, name := range t.routes {
		out = append(out, Route{Path: path, Component: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
