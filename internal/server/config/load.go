package config

import (
	"fmt"

	"github.com/baumanab/delta/internal/infra/confloader"
)

// Load layers the loader's sources over Default and validates the result.
func Load(l *confloader.Loader) (*ServerConfig, error) {
	cfg := Default()
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Reload re-reads every source into a fresh default configuration. The
// loader keeps its previous values when the new ones fail to parse.
func Reload(l *confloader.Loader) (*ServerConfig, error) {
	cfg := Default()
	if err := l.Reload(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
