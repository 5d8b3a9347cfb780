package router

import "github.com/bartr-dev/bartr/pkg/vdom"

// Link creates an anchor that the live client keeps in-app. Its href still
// works without the client.
func Link(href string, children ...any) *vdom.VNode {
	return vdom.A(append([]any{vdom.Href(href)}, children...)...)
}

// RouteLink creates an anchor carrying data-route, the marker the shell
// intercepts regardless of href.
func RouteLink(path string, children ...any) *vdom.VNode {
	return vdom.A(append([]any{vdom.Data("route", path)}, children...)...)
}

// NavLink creates a .nav-link entry for path, marked active when path is the
// shell's current location.
func NavLink(active, path string, children ...any) *vdom.VNode {
	return vdom.A(append([]any{
		vdom.Href(path),
		vdom.Data("route", path),
		vdom.Class("nav-link"),
		vdom.ClassIf(IsActive(active, path), "active"),
	}, children...)...)
}

// IsActive reports whether the nav entry for path matches the current
// location.
func IsActive(current, path string) bool {
	a, errA := Canonicalize(Normalize(current))
	b, errB := Canonicalize(Normalize(path))
	return errA == nil && errB == nil && a == b
}
