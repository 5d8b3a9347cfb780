package server

// Messages exchanged with the browser client as JSON text frames. The
// field t names the message kind.

// Client to server.
const (
	msgEvent    = "event"    // DOM event on an element with a handler
	msgClick    = "click"    // click on a data-route element or internal link
	msgPopstate = "popstate" // browser back/forward
)

// Server to client.
const (
	msgFrame  = "frame"  // new #page-content markup
	msgReload = "reload" // session is gone, reload the page
	msgError  = "error"
)

type clientMessage struct {
	T string `json:"t"`

	// event
	Seq   uint64            `json:"seq,omitempty"`
	HID   string            `json:"hid,omitempty"`
	Type  string            `json:"type,omitempty"`
	Value string            `json:"value,omitempty"`
	Form  map[string]string `json:"form,omitempty"`

	// click
	Route  string `json:"route,omitempty"`
	Href   string `json:"href,omitempty"`
	Target string `json:"target,omitempty"`

	// popstate
	Path string `json:"path,omitempty"`
}

type serverMessage struct {
	T       string `json:"t"`
	Seq     uint64 `json:"seq,omitempty"`
	Path    string `json:"path,omitempty"`
	Title   string `json:"title,omitempty"`
	HTML    string `json:"html,omitempty"`
	Message string `json:"message,omitempty"`
}
