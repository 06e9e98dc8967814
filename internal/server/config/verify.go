package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Verify validates the configuration and reports every problem found.
func Verify(cfg *ServerConfig) error {
	var errs []error
	errs = append(errs, verifyHTTP(&cfg.Server.HTTP)...)
	errs = append(errs, verifyTables(cfg.Tables)...)
	errs = append(errs, verifyReplay(&cfg.Replay)...)
	errs = append(errs, verifyChecksum(&cfg.Checksum)...)

	if cfg.Protocol.MaxReaderVersion < 1 || cfg.Protocol.MaxWriterVersion < 1 {
		errs = append(errs, errors.New("protocol versions must be at least 1"))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want json, text or console", cfg.Log.Format))
	}
	return errors.Join(errs...)
}

func verifyHTTP(cfg *HTTPConfig) []error {
	var errs []error
	if _, _, err := net.SplitHostPort(cfg.Address); err != nil {
		errs = append(errs, fmt.Errorf("server.http.address: %w", err))
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		errs = append(errs, errors.New("server.http timeouts must not be negative"))
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("server.http.rate_limit must not be negative"))
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		errs = append(errs, errors.New("server.http.rate_burst must be at least 1 when rate limiting"))
	}
	return errs
}

func verifyTables(tables []TableConfig) []error {
	var errs []error
	seen := make(map[string]struct{}, len(tables))
	for i, t := range tables {
		switch {
		case t.Name == "":
			errs = append(errs, fmt.Errorf("tables[%d].name is required", i))
		case strings.ContainsAny(t.Name, "/?#"):
			errs = append(errs, fmt.Errorf("tables[%d].name %q must not contain '/', '?' or '#'", i, t.Name))
		}
		if t.Root == "" {
			errs = append(errs, fmt.Errorf("tables[%d].root is required", i))
		}
		if _, dup := seen[t.Name]; dup && t.Name != "" {
			errs = append(errs, fmt.Errorf("tables[%d].name %q is duplicated", i, t.Name))
		}
		seen[t.Name] = struct{}{}
	}
	return errs
}

func verifyReplay(cfg *ReplaySection) []error {
	var errs []error
	if cfg.NumPartitions < 1 {
		errs = append(errs, errors.New("replay.num_partitions must be at least 1"))
	}
	if cfg.Workers < 0 {
		errs = append(errs, errors.New("replay.workers must not be negative"))
	}
	if cfg.FileRetention < 0 || cfg.TxnRetention < 0 {
		errs = append(errs, errors.New("replay retention must not be negative"))
	}
	return errs
}

func verifyChecksum(cfg *ChecksumSection) []error {
	switch cfg.Store {
	case ChecksumStoreFile, ChecksumStoreNone:
	case ChecksumStoreBadger:
		if cfg.Dir == "" {
			return []error{errors.New("checksum.dir is required for the badger store")}
		}
	default:
		return []error{fmt.Errorf("checksum.store %q: want file, badger or none", cfg.Store)}
	}
	if cfg.Retain < 0 {
		return []error{errors.New("checksum.retain must not be negative")}
	}
	return nil
}
