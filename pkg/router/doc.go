// Package router maps URL paths to view component names and decides which
// link clicks stay inside the application.
//
// The table is small and flat: every path maps to at most one component
// name and anything unmapped resolves to the component of "/". Entries can
// be added at runtime with AddRoute.
package router
