package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/replay"
	"github.com/baumanab/delta/internal/core/snapshot"
	"github.com/baumanab/delta/internal/storage/txlog"
)

// TableConfig configures a Table.
type TableConfig struct {
	// Name identifies the table in logs, metrics and checksum keys.
	Name string

	// Root is the table directory holding _delta_log.
	Root string

	// Snapshot carries replay tunables and collaborators. TableRoot and
	// Store are filled in by OpenTable.
	Snapshot snapshot.Config

	// Checksums is optional. Without it SaveChecksum and Verify fail with
	// domain.ErrChecksumNotFound.
	Checksums ChecksumStore

	// RetainChecksums, when positive, prunes older checksums after each
	// SaveChecksum if the store supports it.
	RetainChecksums int

	// TrustChecksums lets a stored checksum answer summary queries of a
	// freshly opened snapshot without replaying the log.
	TrustChecksums bool

	// ReplayFor, when set, supplies the replay tunables of each Open so
	// retention thresholds follow the clock. It overrides Snapshot.Replay.
	ReplayFor func() replay.Config

	Logger *slog.Logger
}

// Table opens snapshots of one table and manages its derived data.
type Table struct {
	name      string
	log       *txlog.Store
	snapCfg   snapshot.Config
	checksums ChecksumStore
	trust     bool
	retain    int
	replayFor func() replay.Config
	logger    *slog.Logger
}

// OpenTable prepares a table for reading. It does not touch the log yet.
func OpenTable(cfg TableConfig) (*Table, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("storage: table name is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	logger := cfg.Logger.With("table", cfg.Name)

	log, err := txlog.NewStore(cfg.Root, logger)
	if err != nil {
		return nil, err
	}

	snapCfg := cfg.Snapshot
	snapCfg.TableRoot = log.Root()
	snapCfg.Store = log
	if snapCfg.Logger == nil {
		snapCfg.Logger = logger
	}

	return &Table{
		name:      cfg.Name,
		log:       log,
		snapCfg:   snapCfg,
		checksums: cfg.Checksums,
		trust:     cfg.TrustChecksums,
		retain:    cfg.RetainChecksums,
		replayFor: cfg.ReplayFor,
		logger:    logger,
	}, nil
}

func (t *Table) snapshotConfig() snapshot.Config {
	cfg := t.snapCfg
	if t.replayFor != nil {
		cfg.Replay = t.replayFor()
	}
	return cfg
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Root returns the absolute table root.
func (t *Table) Root() string { return t.log.Root() }

// Log returns the underlying transaction log.
func (t *Table) Log() *txlog.Store { return t.log }

// Open returns the snapshot at version, or the latest one when version is
// negative. A table without commits opened at latest yields an empty
// snapshot.
func (t *Table) Open(ctx context.Context, version int64) (*snapshot.Snapshot, error) {
	start := time.Now()
	seg, err := t.log.Segment(ctx, version)
	if err != nil {
		if version < 0 && errors.Is(err, domain.ErrNoCommits) {
			t.logger.Info("table has no commits, using initial snapshot")
			return snapshot.NewInitial(t.snapshotConfig()), nil
		}
		return nil, err
	}

	var opts []snapshot.Option
	if t.trust {
		if c := t.storedChecksum(ctx, seg.Version); c != nil {
			opts = append(opts, snapshot.WithChecksum(c))
		}
	}

	snap, err := snapshot.New(ctx, t.snapshotConfig(), seg, opts...)
	if err != nil {
		t.logger.Error("open snapshot failed", "version", seg.Version, "error", err)
		return nil, err
	}
	t.logger.Debug("snapshot opened",
		"version", seg.Version,
		"checkpoint", seg.CheckpointVersion(),
		"deltas", len(seg.Deltas),
		"replayed", snap.ReplayCount() > 0,
		"elapsed", time.Since(start))
	return snap, nil
}

// Latest is Open at the newest version.
func (t *Table) Latest(ctx context.Context) (*snapshot.Snapshot, error) {
	return t.Open(ctx, -1)
}

func (t *Table) storedChecksum(ctx context.Context, version int64) *domain.VersionChecksum {
	if t.checksums == nil {
		return nil
	}
	c, err := t.checksums.Load(ctx, version)
	if err != nil {
		if !errors.Is(err, domain.ErrChecksumNotFound) {
			t.logger.Warn("ignoring unreadable checksum", "version", version, "error", err)
		}
		return nil
	}
	return c
}

// SaveChecksum computes the checksum of snap and persists it.
func (t *Table) SaveChecksum(ctx context.Context, snap *snapshot.Snapshot) (*domain.VersionChecksum, error) {
	if t.checksums == nil {
		return nil, domain.ErrChecksumNotFound.WithDetails("no checksum store configured")
	}
	if snap.Kind() == snapshot.Empty {
		return nil, domain.ErrInvalidArgument.WithDetails("cannot persist the checksum of an empty table")
	}
	c, err := snap.ComputeChecksum(ctx)
	if err != nil {
		return nil, err
	}
	if err := t.checksums.Save(ctx, snap.Version(), c); err != nil {
		return nil, err
	}
	t.logger.Info("checksum persisted", "version", snap.Version(), "fingerprint", c.FingerprintHex())

	if p, ok := t.checksums.(Pruner); ok && t.retain > 0 {
		if n, err := p.Prune(ctx, t.retain); err != nil {
			t.logger.Warn("checksum pruning failed", "error", err)
		} else if n > 0 {
			t.logger.Debug("pruned old checksums", "removed", n, "kept", t.retain)
		}
	}
	return c, nil
}

// VerifyResult reports the outcome of Verify.
type VerifyResult struct {
	Version  int64
	Stored   *domain.VersionChecksum
	Computed *domain.VersionChecksum
}

// Verify replays version and compares it with the stored checksum. A
// divergence yields domain.ErrChecksumMismatch along with both checksums.
func (t *Table) Verify(ctx context.Context, version int64) (*VerifyResult, error) {
	if t.checksums == nil {
		return nil, domain.ErrChecksumNotFound.WithDetails("no checksum store configured")
	}
	seg, err := t.log.Segment(ctx, version)
	if err != nil {
		return nil, err
	}
	stored, err := t.checksums.Load(ctx, seg.Version)
	if err != nil {
		return nil, err
	}

	snap, err := snapshot.New(ctx, t.snapshotConfig(), seg, snapshot.WithChecksum(stored))
	if err != nil {
		return nil, err
	}
	res := &VerifyResult{Version: seg.Version, Stored: stored}
	verr := snap.VerifyChecksum(ctx)
	if res.Computed, err = snap.ComputeChecksum(ctx); err != nil {
		return nil, err
	}
	if verr != nil {
		return res, verr
	}
	t.logger.Info("checksum verified", "version", seg.Version)
	return res, nil
}

// Checkpoint writes the state of snap as a checkpoint at its version.
func (t *Table) Checkpoint(ctx context.Context, snap *snapshot.Snapshot) error {
	if snap.Kind() == snapshot.Empty {
		return domain.ErrInvalidArgument.WithDetails("cannot checkpoint an empty table")
	}
	st, err := snap.State(ctx)
	if err != nil {
		return err
	}
	if err := t.log.WriteCheckpoint(snap.Version(), txlog.CheckpointActions(st)); err != nil {
		return err
	}
	t.logger.Info("checkpoint written", "version", snap.Version(), "files", st.Summary.NumOfFiles)
	return nil
}

// Clean removes log files no longer needed to reconstruct the newest
// retain versions.
func (t *Table) Clean(ctx context.Context, retain int64) ([]string, error) {
	return txlog.NewCleaner(t.log, txlog.WithRetainVersions(retain)).Clean(ctx)
}
