// Package handler implements the read API over the served tables.
//
// Every endpoint answers with the Response envelope. Errors carry the
// domain error code, and the HTTP status is derived from the code's
// numeric suffix (DS-STATE-4090 answers 409).
//
// Routes:
//
//	GET  /health
//	GET  /tables
//	GET  /tables/{name}/snapshot?version=N
//	GET  /tables/{name}/files?version=N&offset=O&limit=L
//	GET  /tables/{name}/tombstones?version=N&offset=O&limit=L
//	GET  /tables/{name}/transactions?version=N
//	GET  /tables/{name}/properties?version=N
//	GET  /tables/{name}/checksum?version=N
//	POST /tables/{name}/checksum?version=N
//	POST /tables/{name}/verify?version=N
package handler
