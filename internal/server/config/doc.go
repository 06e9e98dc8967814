// Package config defines the configuration of deltasnap-server.
//
//   - spec.go: ServerConfig and its sections
//   - default.go: default values
//   - verify.go: validation
//   - sanitize.go: a copy safe to log
//
// Values are loaded through internal/infra/confloader.
package config
