// Package vdom provides the virtual node tree the Bartr views render into.
//
// Views never touch a browser DOM. They build a detached tree of VNode values
// that the render package turns into HTML and the live server ships to the
// browser, which swaps the page content wholesale.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Div(Class("listing-card"), Data("id", id),
//	    H3(Text(listing.Title)),
//	    P(Class("listing-meta"), Text(listing.Location)),
//	    OnClick(open),
//	)
//
// # Events
//
// Event handlers are stored in Props under "on"+event keys. Interactive
// elements receive a hydration ID (data-hid) so that a browser event can be
// routed back to its Go handler with Invoke.
package vdom
