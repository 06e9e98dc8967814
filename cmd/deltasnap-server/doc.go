// Package main provides the entry point for deltasnap-server.
//
// deltasnap-server serves reconstructed snapshots of the tables listed in
// its configuration file over HTTP:
//
//	deltasnap-server --config /etc/deltasnap/server.yaml
//
// The configuration file is watched. Log level and the table list are
// applied on change; listener and checksum store settings need a restart.
package main
