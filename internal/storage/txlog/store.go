package txlog

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/replay"
)

// Store is the log of one table rooted at a directory.
type Store struct {
	root    string
	logPath string
	logger  *slog.Logger
}

// NewStore opens the log of the table at root. The directory does not need
// to exist yet.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("txlog: table root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("txlog: resolve root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:    abs,
		logPath: filepath.Join(abs, domain.LogDirName),
		logger:  logger,
	}, nil
}

// Root returns the absolute table root.
func (s *Store) Root() string { return s.root }

// LogPath returns the log directory.
func (s *Store) LogPath() string { return s.logPath }

// ReadFile implements replay.LogStore.
func (s *Store) ReadFile(ctx context.Context, ref domain.FileRef) ([]domain.Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	actions, err := readFile(ref.Path)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("log file decoded", "file", filepath.Base(ref.Path), "actions", len(actions))
	return actions, nil
}

// CanonicalizePath implements replay.LogStore.
func (s *Store) CanonicalizePath(raw string) (string, error) {
	return replay.CanonicalizePath(s.root, raw)
}

// WriteCommit publishes the commit file for version.
func (s *Store) WriteCommit(version int64, actions []domain.Action) error {
	return writeFile(filepath.Join(s.logPath, CommitFilename(version)), actions)
}

// WriteCheckpoint publishes a checkpoint holding the full state at version.
func (s *Store) WriteCheckpoint(version int64, actions []domain.Action) error {
	return writeFile(filepath.Join(s.logPath, CheckpointFilename(version)), actions)
}

// CheckpointActions renders a reconciled state as checkpoint actions.
func CheckpointActions(st *replay.State) []domain.Action {
	p, md := st.Protocol, st.Metadata
	actions := []domain.Action{{Protocol: &p}, {Metadata: &md}}
	for _, txn := range st.SetTransactions() {
		actions = append(actions, domain.Action{Txn: &txn})
	}
	for _, f := range st.Files() {
		actions = append(actions, domain.Action{Add: &f})
	}
	for _, r := range st.Tombstones() {
		actions = append(actions, domain.Action{Remove: &r})
	}
	return actions
}

// Listing is the content of the log directory ordered by version.
type Listing struct {
	Commits     []domain.FileRef
	Checkpoints []domain.FileRef
}

// LatestVersion returns the highest version reachable from the listing, or -1.
func (l *Listing) LatestVersion() int64 {
	latest := int64(-1)
	if n := len(l.Commits); n > 0 {
		latest = l.Commits[n-1].Version
	}
	if n := len(l.Checkpoints); n > 0 && l.Checkpoints[n-1].Version > latest {
		latest = l.Checkpoints[n-1].Version
	}
	return latest
}

// List scans the log directory. A missing directory yields an empty listing.
func (s *Store) List(ctx context.Context) (*Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Listing{}, nil
		}
		return nil, fmt.Errorf("txlog: list %s: %w", s.logPath, err)
	}

	l := &Listing{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, checkpoint, ok := parseFilename(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("txlog: stat %s: %w", e.Name(), err)
		}
		ref := domain.FileRef{
			Path:    filepath.Join(s.logPath, e.Name()),
			Version: version,
			Size:    info.Size(),
			ModTime: info.ModTime().UnixMilli(),
		}
		if checkpoint {
			l.Checkpoints = append(l.Checkpoints, ref)
		} else {
			l.Commits = append(l.Commits, ref)
		}
	}
	byVersion := func(a, b domain.FileRef) int { return cmp.Compare(a.Version, b.Version) }
	slices.SortFunc(l.Commits, byVersion)
	slices.SortFunc(l.Checkpoints, byVersion)
	return l, nil
}

// Segment describes what to replay for version. A negative version selects
// the latest one. It picks the newest checkpoint at or below the version
// and the commits that follow it.
func (s *Store) Segment(ctx context.Context, version int64) (*domain.LogSegment, error) {
	l, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	latest := l.LatestVersion()
	if latest < 0 {
		return nil, domain.ErrNoCommits.WithDetails(s.root)
	}
	if version < 0 {
		version = latest
	}
	if version > latest {
		return nil, domain.ErrMissingVersion.WithDetails(fmt.Sprintf("version %d is beyond latest %d", version, latest))
	}

	seg := &domain.LogSegment{LogPath: s.logPath, Version: version}
	for i := len(l.Checkpoints) - 1; i >= 0; i-- {
		if cp := l.Checkpoints[i]; cp.Version <= version {
			seg.Checkpoint = &cp
			seg.LastCommitTimestamp = cp.ModTime
			break
		}
	}
	from := seg.CheckpointVersion()
	for _, c := range l.Commits {
		if c.Version > from && c.Version <= version {
			seg.Deltas = append(seg.Deltas, c)
			seg.LastCommitTimestamp = c.ModTime
		}
	}
	if err := seg.Contiguous(); err != nil {
		return nil, err
	}
	return seg, nil
}
