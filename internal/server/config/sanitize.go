package config

import "github.com/baumanab/delta/internal/telemetry/logger"

// Sanitize returns a copy of cfg safe to log. Signed table URLs lose their
// signatures.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	out := *cfg
	out.Tables = make([]TableConfig, len(cfg.Tables))
	for i, t := range cfg.Tables {
		t.Root = logger.MaskURL(t.Root)
		out.Tables[i] = t
	}
	return &out
}
