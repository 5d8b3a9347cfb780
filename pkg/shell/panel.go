package shell

import (
	. "github.com/bartr-dev/bartr/pkg/vdom"
)

// ErrorPanel is shown in place of a view that failed to load. The reload
// button is handled by the browser client as a full page reload.
func ErrorPanel(message string) *VNode {
	return Div(Class("error-panel"), Role("alert"),
		H2("Error"),
		P(Class("error-message"), message),
		Button(Class("reload-button"), Type("button"), Data("reload", "true"), "RELOAD PAGE"),
	)
}

// LoadingIndicator is shown while the first view of a session loads.
func LoadingIndicator() *VNode {
	return Div(Class("loading"), AriaLive("polite"), "Loading...")
}
