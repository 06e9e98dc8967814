// Package httpserver serves the table API over HTTP.
//
// Endpoints are implemented in the handler subpackage; this package adds
// the middleware chain (panic recovery, request ids, per-client rate
// limiting, audit logging with request metrics), the /metrics endpoint
// and the server lifecycle.
package httpserver
