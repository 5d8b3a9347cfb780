package router

import "strings"

// ClickTarget describes the element a click landed on, as reported by the
// live client after walking up to the nearest element carrying data-route
// or href.
type ClickTarget struct {
	// Route is the value of a data-route attribute, if any.
	Route string
	// Href is the href of an anchor, if any.
	Href string
	// Target is the anchor's target attribute.
	Target string
}

// Intercept decides whether a click is handled in-app. An element with
// data-route always navigates to its value. An anchor navigates in-app when
// its href starts with "/" but not "//" and it does not open a new browsing
// context. Everything else is left to the browser.
func Intercept(t ClickTarget) (path string, ok bool) {
	if t.Route != "" {
		return Normalize(t.Route), true
	}
	if t.Href == "" || (t.Target != "" && t.Target != "_self") {
		return "", false
	}
	if strings.HasPrefix(t.Href, "/") && !strings.HasPrefix(t.Href, "//") {
		return t.Href, true
	}
	return "", false
}
