package config

import (
	"time"

	"github.com/baumanab/delta/internal/core/replay"
	"github.com/baumanab/delta/internal/core/snapshot"
	"github.com/baumanab/delta/internal/storage/crcstore"
)

// Default configuration values.
const (
	DefaultHTTPAddr     = "127.0.0.1:7480"
	DefaultReadTimeout  = 15 * time.Second
	DefaultWriteTimeout = 2 * time.Minute
	DefaultRateLimit    = 20.0
	DefaultRateBurst    = 40

	DefaultFileRetention = 7 * 24 * time.Hour
	DefaultTxnRetention  = 0

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Address:      DefaultHTTPAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				RateLimit:    DefaultRateLimit,
				RateBurst:    DefaultRateBurst,
			},
		},
		Replay: ReplaySection{
			NumPartitions: replay.DefaultNumPartitions,
			FileRetention: DefaultFileRetention,
			TxnRetention:  DefaultTxnRetention,
			Histogram:     true,
		},
		Protocol: ProtocolSection{
			MaxReaderVersion: snapshot.MaxReaderVersion,
			MaxWriterVersion: snapshot.MaxWriterVersion,
		},
		Checksum: ChecksumSection{
			Store:  ChecksumStoreFile,
			Retain: crcstore.DefaultRetainCount,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// ReplayConfig converts the retention windows into thresholds ending at now.
func (c *ServerConfig) ReplayConfig(now time.Time) replay.Config {
	cfg := replay.ConfigFromRetention(now, c.Replay.FileRetention, c.Replay.TxnRetention)
	cfg.NumPartitions = c.Replay.NumPartitions
	cfg.Histogram = c.Replay.Histogram
	cfg.Workers = c.Replay.Workers
	return cfg
}

// Gate returns the protocol gate described by the protocol section.
func (c *ServerConfig) Gate() snapshot.VersionRangeGate {
	return snapshot.VersionRangeGate{
		MaxReaderVersion: c.Protocol.MaxReaderVersion,
		MaxWriterVersion: c.Protocol.MaxWriterVersion,
	}
}
