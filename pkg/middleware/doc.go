// Package middleware provides the HTTP middleware shared by the Bartr API and
// UI server.
//
// This package includes:
//   - Prometheus request metrics
//   - OpenTelemetry server spans
//   - Structured request logging
//
// # Prometheus Metrics
//
// NewMetrics registers the request collectors once and returns a value whose
// Handler method wraps any http.Handler:
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(m.Handler)
//
// Metrics collected:
//   - bartr_http_requests_total: requests by method, route and status class
//   - bartr_http_request_duration_seconds: latency by method and route
//   - bartr_http_requests_in_flight: requests currently being served
//
// Routes are labelled with the chi route pattern, so /api/listings/7 and
// /api/listings/8 share the /api/listings/{id} series.
//
// # OpenTelemetry
//
// Tracing starts a server span per request from the global tracer provider
// unless WithTracerProvider is given. The span context is placed on the
// request context so the API client and database calls inherit it.
//
//	r.Use(middleware.Tracing(middleware.WithTracerName("bartr-ui")))
//
// # Logging
//
//	r.Use(middleware.Logger(logger))
package middleware
