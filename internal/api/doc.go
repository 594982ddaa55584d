// Package api serves recommendations, catalog search, and status as JSON
// over HTTP. Routing uses chi; every request gets a request ID that flows
// into log lines, and /metrics exposes the Prometheus registry.
//
// Routes:
//
//	GET /api/recommendations?title=&limit=
//	GET /api/movies?q=&limit=
//	GET /api/status
//	GET /healthz
//	GET /metrics
//
// When a token is configured, /api routes require "Authorization: Bearer <token>".
package api
