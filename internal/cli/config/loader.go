package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/baumanab/delta/internal/infra/confloader"
)

// EnvPrefix marks environment overrides of the CLI configuration.
const EnvPrefix = "DELTASNAP_CLI_"

// DefaultConfigPath returns ~/.deltasnap/cli.yaml.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".deltasnap", "cli.yaml")
}

// Load reads path over Default. A missing file is not an error.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		path = ""
	}

	cfg := Default()
	l := confloader.NewLoader(confloader.WithEnvPrefix(EnvPrefix), confloader.WithConfigFile(path))
	if err := l.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cli config: %w", err)
	}
	if cfg.Tables == nil {
		cfg.Tables = make(map[string]string)
	}
	return cfg, nil
}

// Save writes cfg to path, readable only by the owner.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode cli config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
