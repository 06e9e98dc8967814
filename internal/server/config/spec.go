package config

import "time"

// ServerConfig is the root configuration for deltasnap-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server" yaml:"server"`
	Tables   []TableConfig   `koanf:"tables" yaml:"tables"`
	Replay   ReplaySection   `koanf:"replay" yaml:"replay"`
	Protocol ProtocolSection `koanf:"protocol" yaml:"protocol"`
	Checksum ChecksumSection `koanf:"checksum" yaml:"checksum"`
	Log      LogSection      `koanf:"log" yaml:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http" yaml:"http"`
	Admin AdminConfig `koanf:"admin" yaml:"admin"`
}

// AdminConfig configures the local admin socket.
type AdminConfig struct {
	// Socket is the Unix socket path. Empty disables the admin socket.
	Socket string `koanf:"socket" yaml:"socket"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Address      string        `koanf:"address" yaml:"address"`
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout"`

	// RateLimit is the steady request rate allowed per client IP. Zero
	// disables limiting.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" yaml:"rate_burst"`
}

// TableConfig names one served table.
type TableConfig struct {
	Name string `koanf:"name" yaml:"name"`
	Root string `koanf:"root" yaml:"root"`
}

// ReplaySection tunes log replay.
type ReplaySection struct {
	NumPartitions int `koanf:"num_partitions" yaml:"num_partitions"`

	// FileRetention keeps tombstones younger than this. Zero keeps all.
	FileRetention time.Duration `koanf:"file_retention" yaml:"file_retention"`

	// TxnRetention keeps transactions updated more recently. Zero keeps all.
	TxnRetention time.Duration `koanf:"txn_retention" yaml:"txn_retention"`

	Histogram bool `koanf:"histogram" yaml:"histogram"`
	Workers   int  `koanf:"workers" yaml:"workers"`
}

// ProtocolSection bounds the table protocols this server reads.
type ProtocolSection struct {
	MaxReaderVersion int `koanf:"max_reader_version" yaml:"max_reader_version"`
	MaxWriterVersion int `koanf:"max_writer_version" yaml:"max_writer_version"`
}

// Checksum store kinds.
const (
	ChecksumStoreFile   = "file"
	ChecksumStoreBadger = "badger"
	ChecksumStoreNone   = "none"
)

// ChecksumSection selects where version checksums are persisted.
type ChecksumSection struct {
	Store string `koanf:"store" yaml:"store"`

	// Dir is the badger directory, or for file stores a directory holding
	// one subdirectory per table. An empty Dir with the file store writes
	// beside each table's log.
	Dir string `koanf:"dir" yaml:"dir"`

	// Trust answers summary queries from a stored checksum without replay.
	Trust bool `koanf:"trust" yaml:"trust"`

	// Retain is the number of checksums kept per table by pruning.
	Retain int `koanf:"retain" yaml:"retain"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}
