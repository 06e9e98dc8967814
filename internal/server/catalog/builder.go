package catalog

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/replay"
	"github.com/baumanab/delta/internal/core/snapshot"
	"github.com/baumanab/delta/internal/server/config"
	"github.com/baumanab/delta/internal/storage"
	"github.com/baumanab/delta/internal/storage/crcstore"
	"github.com/baumanab/delta/internal/telemetry/metric"
)

// Builder turns a table entry of the server configuration into a
// storage.Table wired to the configured checksum store and metrics.
type Builder struct {
	Config *config.ServerConfig

	// KV backs the badger checksum store. Required only for that store.
	KV storage.KVEngine

	// Metrics receives replay observations. Optional.
	Metrics *metric.Registry

	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Build implements BuildFunc.
func (b *Builder) Build(tc config.TableConfig) (*storage.Table, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.Now
	if now == nil {
		now = time.Now
	}

	checksums, err := b.checksumStore(tc, logger)
	if err != nil {
		return nil, err
	}

	snapCfg := snapshot.Config{
		Gate:   b.Config.Gate(),
		Logger: logger.With("table", tc.Name),
	}
	if b.Metrics != nil {
		snapCfg.Observer = b.Metrics.ReplayObserver(tc.Name)
	}

	return storage.OpenTable(storage.TableConfig{
		Name:            tc.Name,
		Root:            tc.Root,
		Snapshot:        snapCfg,
		Checksums:       checksums,
		TrustChecksums:  b.Config.Checksum.Trust,
		RetainChecksums: b.Config.Checksum.Retain,
		ReplayFor:       func() replay.Config { return b.Config.ReplayConfig(now()) },
		Logger:          logger,
	})
}

func (b *Builder) checksumStore(tc config.TableConfig, logger *slog.Logger) (storage.ChecksumStore, error) {
	switch b.Config.Checksum.Store {
	case config.ChecksumStoreNone:
		return nil, nil
	case config.ChecksumStoreBadger:
		if b.KV == nil {
			return nil, fmt.Errorf("catalog: badger checksum store requested without an engine")
		}
		return storage.NewBadgerChecksumStore(b.KV, tc.Name), nil
	default:
		dir := filepath.Join(tc.Root, domain.LogDirName)
		if b.Config.Checksum.Dir != "" {
			dir = filepath.Join(b.Config.Checksum.Dir, tc.Name)
		}
		files, err := crcstore.New(dir, logger.With("table", tc.Name))
		if err != nil {
			return nil, err
		}
		return storage.NewFileChecksumStore(files), nil
	}
}
