package vdom

import "errors"

// ErrUnsupportedHandler is returned by Invoke for handler values of an
// unknown signature.
var ErrUnsupportedHandler = errors.New("vdom: unsupported handler signature")

// Event is the payload a browser event carries back to its handler.
type Event struct {
	// Type is the DOM event name without the "on" prefix ("click", "input").
	Type string
	// Value is the target's current value for input and change events.
	Value string
	// Form holds the named controls of the submitted form for submit events.
	Form map[string]string
}

// Field returns a submitted form value, or "".
func (e Event) Field(name string) string {
	if e.Form == nil {
		return ""
	}
	return e.Form[name]
}

// event creates an EventHandler with the given name and handler.
// The name is prefixed with "on" (e.g., "click" becomes "onclick").
func event(name string, handler any) EventHandler {
	return EventHandler{Event: "on" + name, Handler: handler}
}

// OnClick handles click events.
func OnClick(handler any) EventHandler { return event("click", handler) }

// OnInput handles input events (fired when value changes).
func OnInput(handler any) EventHandler { return event("input", handler) }

// OnChange handles change events (fired when value is committed).
func OnChange(handler any) EventHandler { return event("change", handler) }

// OnSubmit handles form submit events. The browser default is always
// prevented for forms with a submit handler.
func OnSubmit(handler any) EventHandler { return event("submit", handler) }

// OnKeyDown handles keydown events.
func OnKeyDown(handler any) EventHandler { return event("keydown", handler) }

// Invoke calls handler with ev, adapting to the supported signatures:
// func(), func(Event) and func(string) (receives ev.Value).
func Invoke(handler any, ev Event) error {
	switch h := handler.(type) {
	case func():
		h()
	case func(Event):
		h(ev)
	case func(string):
		h(ev.Value)
	default:
		return ErrUnsupportedHandler
	}
	return nil
}
