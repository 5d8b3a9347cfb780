// Package server is the live UI server. A page request creates a session
// whose shell mounts the view for the requested path; the first frame is
// rendered into the HTML response. The browser client then connects to
// /_bartr/live and from there on forwards clicks, form events and history
// changes, receiving the re-rendered #page-content after every change.
//
// Sessions are per page load. Durable state (the API tokens and cached
// user) lives in the per-browser storage namespace selected by the
// browser identity cookie, so it survives reloads and is shared by tabs.
//
//	srv, err := server.New(&server.ServerConfig{
//	    Setup: func(storage session.Storage) (*shell.Registry, *router.Table) {
//	        ...
//	    },
//	})
//	go srv.Run(ctx)
//	http.ListenAndServe(":8080", srv.Handler())
package server
