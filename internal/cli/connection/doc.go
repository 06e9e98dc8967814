// Package connection is the HTTP client the deltasnap CLI uses to query a
// running deltasnap-server. It unwraps the response envelope and turns
// error envelopes into *APIError values.
package connection
