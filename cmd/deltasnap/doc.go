// Package main provides the entry point for deltasnap.
//
// deltasnap reconstructs table snapshots from a local transaction log and
// queries a running deltasnap-server:
//
//	deltasnap --table /data/events snapshot
//	deltasnap -t events -o json files --version 12
//	deltasnap -t events checksum --save
//	deltasnap remote snapshot events
package main
