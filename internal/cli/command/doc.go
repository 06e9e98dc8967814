// Package command defines the deltasnap CLI.
//
// Local commands open a table root directly and replay its log in
// process; the remote group queries a running deltasnap-server. Every
// command honours the global --output and --wide flags.
package command
