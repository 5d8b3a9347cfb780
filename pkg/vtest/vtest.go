package vtest

import (
	"strings"
	"sync"
	"testing"

	"github.com/bartr-dev/bartr/pkg/component"
	"github.com/bartr-dev/bartr/pkg/render"
	"github.com/bartr-dev/bartr/pkg/vdom"
)

// Host is a component.Host for tests.
type Host struct {
	run sync.Mutex
	wg  sync.WaitGroup

	mu         sync.Mutex
	active     string
	navigated  []string
	dispatched int
}

var _ component.Host = (*Host)(nil)

// NewHost returns a Host whose active path is active.
func NewHost(active string) *Host {
	return &Host{active: active}
}

// NavigateTo records the navigation.
func (h *Host) NavigateTo(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.navigated = append(h.navigated, path)
}

// ActivePath returns the path given to NewHost, or "/".
func (h *Host) ActivePath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == "" {
		return "/"
	}
	return h.active
}

// Dispatch runs fn inline, serialized with every other dispatched func.
func (h *Host) Dispatch(fn func()) {
	h.mu.Lock()
	h.dispatched++
	h.mu.Unlock()

	h.run.Lock()
	defer h.run.Unlock()
	fn()
}

// Track registers background work. The returned func may be called more
// than once.
func (h *Host) Track() func() {
	h.wg.Add(1)
	var once sync.Once
	return func() { once.Do(h.wg.Done) }
}

// Wait blocks until all tracked work is done.
func (h *Host) Wait() { h.wg.Wait() }

// Navigations returns the recorded navigations in order.
func (h *Host) Navigations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.navigated...)
}

// Dispatched returns how many funcs were dispatched.
func (h *Host) Dispatched() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dispatched
}

// ExpectNavigated asserts the host navigated exactly to paths, in order.
func ExpectNavigated(t testing.TB, h *Host, paths ...string) {
	t.Helper()
	got := h.Navigations()
	if len(got) != len(paths) {
		t.Errorf("navigations = %v, want %v", got, paths)
		return
	}
	for i := range got {
		if got[i] != paths[i] {
			t.Errorf("navigations = %v, want %v", got, paths)
			return
		}
	}
}

// RenderToString renders a VNode and returns the HTML string, or "" when
// rendering fails.
func RenderToString(node *vdom.VNode) string {
	html, err := render.NewRenderer(render.RendererConfig{}).RenderToString(node)
	if err != nil {
		return ""
	}
	return html
}

// ExpectContains asserts that rendered output contains expected.
func ExpectContains(t testing.TB, node *vdom.VNode, expected string) {
	t.Helper()
	html := RenderToString(node)
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that rendered output does not contain
// unexpected.
func ExpectNotContains(t testing.TB, node *vdom.VNode, unexpected string) {
	t.Helper()
	html := RenderToString(node)
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// Submit fires the submit handler of the form with id formID.
func Submit(t testing.TB, root *vdom.VNode, formID string, fields map[string]string) {
	t.Helper()
	form := vdom.FindByID(root, formID)
	if form == nil {
		t.Fatalf("form #%s not rendered", formID)
	}
	if err := vdom.Invoke(form.Props["onsubmit"], vdom.Event{Type: "submit", Form: fields}); err != nil {
		t.Fatalf("submit #%s: %v", formID, err)
	}
}

// Click fires the click handler of node.
func Click(t testing.TB, node *vdom.VNode, ev vdom.Event) {
	t.Helper()
	if node == nil {
		t.Fatal("click target not rendered")
	}
	ev.Type = "click"
	if err := vdom.Invoke(node.Props["onclick"], ev); err != nil {
		t.Fatalf("click: %v", err)
	}
}

// Input fires the input handler of node with value.
func Input(t testing.TB, node *vdom.VNode, value string) {
	t.Helper()
	if node == nil {
		t.Fatal("input not rendered")
	}
	if err := vdom.Invoke(node.Props["oninput"], vdom.Event{Type: "input", Value: value}); err != nil {
		t.Fatalf("input: %v", err)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
