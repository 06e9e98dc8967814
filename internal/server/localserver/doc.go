// Package localserver serves a line-oriented admin protocol on a Unix
// domain socket. Access is controlled by the socket file's permissions.
//
// Each request is one line, a command followed by arguments:
//
//	status             JSON array of loaded tables with version and size
//	reload             re-read the configuration file
//	invalidate NAME    drop the cached latest snapshot of a table
//	shutdown           stop the server gracefully
//
// Replies end with a line "ok" or "error: <message>".
package localserver
