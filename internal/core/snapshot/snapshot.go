// Package snapshot exposes the reconciled state of one table version as an
// immutable, lazily computed handle.
package snapshot

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/replay"
)

// Table property keys derived from the protocol.
const (
	PropMinReaderVersion = "delta.minReaderVersion"
	PropMinWriterVersion = "delta.minWriterVersion"

	// InternalPathKey is stored in the configuration by some writers and is
	// never surfaced as a table property.
	InternalPathKey = "path"
)

// Kind selects how a Snapshot obtains its state.
type Kind uint8

const (
	// Reconstructed snapshots replay their log segment on first access.
	Reconstructed Kind = iota
	// Empty snapshots describe a table without commits and never read the log.
	Empty
)

func (k Kind) String() string {
	if k == Empty {
		return "empty"
	}
	return "reconstructed"
}

// Config holds the collaborators and tunables shared by snapshots of a table.
type Config struct {
	TableRoot string
	Store     replay.LogStore
	Replay    replay.Config
	Gate      ProtocolGate
	Validator SchemaValidator
	Observer  replay.Observer
	Logger    *slog.Logger

	// ChecksumFiles embeds the live file list in computed checksums.
	ChecksumFiles bool
}

func (c Config) withDefaults() Config {
	if c.Gate == nil {
		c.Gate = DefaultGate()
	}
	if c.Validator == nil {
		c.Validator = DeprecatedTypeValidator{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// LogPath returns the log directory of the table.
func (c Config) LogPath() string {
	return filepath.Join(c.TableRoot, domain.LogDirName)
}

type options struct {
	checksum      *domain.VersionChecksum
	configuration map[string]string
	now           func() time.Time
}

// Option customizes snapshot construction.
type Option func(*options)

// WithChecksum supplies a checksum the caller trusts for this version.
// Protocol, Metadata and the Summary accessors answer from it for the
// lifetime of the snapshot, even after a replay has run.
func WithChecksum(c *domain.VersionChecksum) Option {
	return func(o *options) { o.checksum = c }
}

// WithConfiguration sets the configuration of a synthesized initial metadata.
func WithConfiguration(conf map[string]string) Option {
	return func(o *options) { o.configuration = maps.Clone(conf) }
}

// WithClock overrides the time source used for synthesized metadata.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Snapshot is the state of a table at one version. All methods are safe for
// concurrent use. The underlying replay runs at most once per instance; any
// failure is permanent for the instance.
type Snapshot struct {
	cfg      Config
	kind     Kind
	version  int64
	segment  *domain.LogSegment
	checksum *domain.VersionChecksum
	logger   *slog.Logger

	replayer *replay.Replayer
	state    Cell[*replay.State]
	empty    *replay.State
	replays  atomic.Int64
}

// New opens the snapshot of seg.Version. It rejects segments that reference
// files outside the table's log directory, then resolves the protocol and
// checks it against the gate. Without a trusted checksum this runs the
// replay, which is then shared by every accessor.
func New(ctx context.Context, cfg Config, seg *domain.LogSegment, opts ...Option) (*Snapshot, error) {
	cfg = cfg.withDefaults()
	if logPath := cfg.LogPath(); filepath.Clean(seg.LogPath) != logPath {
		return nil, &domain.CrossTableFileError{File: seg.LogPath, LogPath: logPath}
	}
	if err := seg.AssertOwnership(); err != nil {
		return nil, err
	}
	if err := seg.Contiguous(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	s := &Snapshot{
		cfg:      cfg,
		kind:     Reconstructed,
		version:  seg.Version,
		segment:  seg,
		checksum: o.checksum,
		logger:   cfg.Logger.With("table", cfg.TableRoot, "version", seg.Version),
		replayer: replay.NewReplayer(cfg.Store, cfg.Replay,
			replay.WithLogger(cfg.Logger), replay.WithObserver(cfg.Observer)),
	}

	p, err := s.Protocol(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Gate.IsSupported(p) {
		return nil, unsupported(cfg.Gate, p)
	}

	md, err := s.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Validator.Validate(ctx, md) {
		s.logger.Warn("schema warning", "detail", w)
	}
	return s, nil
}

// NewInitial returns the snapshot of a table that has no commits yet. It
// synthesizes fresh metadata and the minimum protocol for a new table and
// never touches the log store.
func NewInitial(cfg Config, opts ...Option) *Snapshot {
	cfg = cfg.withDefaults()
	o := applyOptions(opts)

	created := o.now().UnixMilli()
	md := domain.Metadata{
		ID:            ulid.Make().String(),
		Format:        domain.Format{Provider: "parquet"},
		Configuration: o.configuration,
		CreatedTime:   &created,
	}
	return &Snapshot{
		cfg:     cfg,
		kind:    Empty,
		version: -1,
		segment: &domain.LogSegment{LogPath: cfg.LogPath(), Version: -1},
		logger:  cfg.Logger.With("table", cfg.TableRoot, "version", -1),
		empty:   replay.EmptyState(domain.DefaultProtocol(), md, cfg.Replay.Histogram),
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// resolve is the single dispatch point between the two state kinds.
func (s *Snapshot) resolve(ctx context.Context) (*replay.State, error) {
	switch s.kind {
	case Empty:
		return s.empty, nil
	case Reconstructed:
		return s.state.Get(ctx, s.reconstruct)
	default:
		return nil, fmt.Errorf("snapshot: unknown kind %d", s.kind)
	}
}

func (s *Snapshot) reconstruct(ctx context.Context) (*replay.State, error) {
	s.replays.Add(1)
	return s.replayer.Run(ctx, s.segment)
}

// fastChecksum returns the trusted checksum, nil when there is none. The
// answer source never changes for an instance.
func (s *Snapshot) fastChecksum() *domain.VersionChecksum {
	return s.checksum
}

// State returns the reconciled state, replaying if needed. The state is
// shared and must not be modified.
func (s *Snapshot) State(ctx context.Context) (*replay.State, error) {
	return s.resolve(ctx)
}

// ReplayState reports the lifecycle position of the replay. Empty snapshots
// are always Done. A Failed snapshot stays failed; callers that want a retry
// open a new one.
func (s *Snapshot) ReplayState() CellState {
	if s.kind == Empty {
		return Done
	}
	return s.state.State()
}

// Kind reports whether the snapshot is reconstructed or empty.
func (s *Snapshot) Kind() Kind { return s.kind }

// Version returns the table version, -1 for an empty table.
func (s *Snapshot) Version() int64 { return s.version }

// TableRoot returns the table root directory.
func (s *Snapshot) TableRoot() string { return s.cfg.TableRoot }

// Segment returns the log segment the snapshot replays.
func (s *Snapshot) Segment() *domain.LogSegment { return s.segment }

// ReplayCount reports how many times the replay pipeline ran for this
// instance. It is 0 or 1.
func (s *Snapshot) ReplayCount() int64 { return s.replays.Load() }

// Protocol returns the table protocol.
func (s *Snapshot) Protocol(ctx context.Context) (domain.Protocol, error) {
	if c := s.fastChecksum(); c != nil {
		return c.Protocol, nil
	}
	st, err := s.resolve(ctx)
	if err != nil {
		return domain.Protocol{}, err
	}
	return st.Protocol, nil
}

// Metadata returns the table metadata.
func (s *Snapshot) Metadata(ctx context.Context) (domain.Metadata, error) {
	if c := s.fastChecksum(); c != nil {
		return c.Metadata, nil
	}
	st, err := s.resolve(ctx)
	if err != nil {
		return domain.Metadata{}, err
	}
	return st.Metadata, nil
}

// Summary returns the aggregate counters of the snapshot. When answered
// from a trusted checksum, NumOfRemoves is always -1 because checksums carry
// no tombstones; use NumOfRemoves for the replayed count.
func (s *Snapshot) Summary(ctx context.Context) (replay.Summary, error) {
	if c := s.fastChecksum(); c != nil {
		return replay.Summary{
			SizeInBytes:          c.TableSizeBytes,
			NumOfFiles:           c.NumFiles,
			NumOfMetadata:        c.NumMetadata,
			NumOfProtocol:        c.NumProtocol,
			NumOfSetTransactions: c.NumTransactions,
			NumOfRemoves:         -1,
			Histogram:            c.Histogram.Clone(),
		}, nil
	}
	st, err := s.resolve(ctx)
	if err != nil {
		return replay.Summary{}, err
	}
	sum := st.Summary
	sum.Histogram = sum.Histogram.Clone()
	return sum, nil
}

// SizeInBytes returns the total size of live files.
func (s *Snapshot) SizeInBytes(ctx context.Context) (int64, error) {
	sum, err := s.Summary(ctx)
	return sum.SizeInBytes, err
}

// NumOfFiles returns the number of live files.
func (s *Snapshot) NumOfFiles(ctx context.Context) (int64, error) {
	sum, err := s.Summary(ctx)
	return sum.NumOfFiles, err
}

// NumOfRemoves returns the number of unexpired tombstones. Checksums do not
// record tombstones, so this always uses the replayed state.
func (s *Snapshot) NumOfRemoves(ctx context.Context) (int64, error) {
	st, err := s.resolve(ctx)
	if err != nil {
		return 0, err
	}
	return st.Summary.NumOfRemoves, nil
}

// NumOfMetadata returns how many metadata records the replay saw.
func (s *Snapshot) NumOfMetadata(ctx context.Context) (int64, error) {
	sum, err := s.Summary(ctx)
	return sum.NumOfMetadata, err
}

// NumOfProtocol returns how many protocol records the replay saw.
func (s *Snapshot) NumOfProtocol(ctx context.Context) (int64, error) {
	sum, err := s.Summary(ctx)
	return sum.NumOfProtocol, err
}

// NumOfSetTransactions returns the number of surviving transactions.
func (s *Snapshot) NumOfSetTransactions(ctx context.Context) (int64, error) {
	sum, err := s.Summary(ctx)
	return sum.NumOfSetTransactions, err
}

// FileSizeHistogram returns the live file size histogram, nil when disabled.
func (s *Snapshot) FileSizeHistogram(ctx context.Context) (*domain.FileSizeHistogram, error) {
	sum, err := s.Summary(ctx)
	return sum.Histogram, err
}

// AllFiles returns the live files in path order. The sequence can be ranged
// over any number of times without replaying again.
func (s *Snapshot) AllFiles(ctx context.Context) (iter.Seq[domain.AddFile], error) {
	st, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Values(st.Files()), nil
}

// Tombstones returns the unexpired tombstones in path order.
func (s *Snapshot) Tombstones(ctx context.Context) (iter.Seq[domain.RemoveFile], error) {
	st, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Values(st.Tombstones()), nil
}

// SetTransactions returns the surviving transactions ordered by app id.
func (s *Snapshot) SetTransactions(ctx context.Context) ([]domain.SetTransaction, error) {
	st, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return st.SetTransactions(), nil
}

// Transactions maps each app id to its latest committed version.
func (s *Snapshot) Transactions(ctx context.Context) (map[string]int64, error) {
	st, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return st.Transactions(), nil
}

// ComputeChecksum derives the checksum of the replayed state.
func (s *Snapshot) ComputeChecksum(ctx context.Context) (*domain.VersionChecksum, error) {
	st, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return replay.BuildChecksum(st, s.cfg.ChecksumFiles), nil
}

// VerifyChecksum replays the segment and compares the result with the
// checksum supplied at construction.
func (s *Snapshot) VerifyChecksum(ctx context.Context) error {
	if s.checksum == nil {
		return domain.ErrChecksumNotFound.WithDetails(fmt.Sprintf("version %d", s.version))
	}
	computed, err := s.ComputeChecksum(ctx)
	if err != nil {
		return err
	}
	if diffs := s.checksum.Diff(computed); len(diffs) > 0 {
		s.logger.Warn("checksum mismatch", "diffs", diffs)
		return domain.ErrChecksumMismatch.WithDetails(strings.Join(diffs, "; "))
	}
	return nil
}

// Properties returns the table configuration without the internal path key,
// plus the protocol versions.
func (s *Snapshot) Properties(ctx context.Context) (map[string]string, error) {
	md, err := s.Metadata(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.Protocol(ctx)
	if err != nil {
		return nil, err
	}
	props := make(map[string]string, len(md.Configuration)+2)
	for k, v := range md.Configuration {
		if k != InternalPathKey {
			props[k] = v
		}
	}
	props[PropMinReaderVersion] = strconv.Itoa(p.MinReaderVersion)
	props[PropMinWriterVersion] = strconv.Itoa(p.MinWriterVersion)
	return props, nil
}
