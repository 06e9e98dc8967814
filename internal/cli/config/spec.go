package config

import "time"

// CLIConfig is the configuration for the deltasnap CLI.
type CLIConfig struct {
	// Server is the deltasnap-server address used by the remote commands.
	Server string `koanf:"server" yaml:"server"`

	// Output is the default format: table, json or yaml.
	Output string `koanf:"output" yaml:"output"`

	// Tables maps aliases to table roots.
	Tables map[string]string `koanf:"tables" yaml:"tables,omitempty"`

	Replay ReplayDefaults `koanf:"replay" yaml:"replay"`
}

// ReplayDefaults tunes local replays.
type ReplayDefaults struct {
	NumPartitions int           `koanf:"num_partitions" yaml:"num_partitions"`
	FileRetention time.Duration `koanf:"file_retention" yaml:"file_retention"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server: "http://127.0.0.1:7480",
		Output: "table",
		Tables: make(map[string]string),
		Replay: ReplayDefaults{
			NumPartitions: 50,
			FileRetention: 7 * 24 * time.Hour,
		},
	}
}

// ResolveTable returns the root registered under alias, or the argument
// itself when it is not an alias.
func (c *CLIConfig) ResolveTable(nameOrRoot string) string {
	if root, ok := c.Tables[nameOrRoot]; ok {
		return root
	}
	return nameOrRoot
}
