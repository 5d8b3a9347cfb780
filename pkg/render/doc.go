// Package render turns vdom trees into HTML.
//
// A Renderer assigns hydration IDs to interactive elements as it writes them
// and collects their handlers, so the live server can route a browser event
// (hid + event name) back to Go code:
//
//	r := render.NewRenderer(render.RendererConfig{})
//	html, err := r.RenderToString(view.Render())
//	handlers := r.Handlers()
//
// RenderPage wraps a view in the full Bartr document: head, stylesheet,
// the #app shell with its #page-content mount point, and the thin client.
package render
