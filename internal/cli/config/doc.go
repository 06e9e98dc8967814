// Package config holds the deltasnap CLI defaults stored in
// ~/.deltasnap/cli.yaml: the output format, the server used by the remote
// commands, replay tuning and table aliases mapping short names to roots.
//
// Environment variables prefixed DELTASNAP_CLI_ override the file, e.g.
// DELTASNAP_CLI_OUTPUT=json.
package config
