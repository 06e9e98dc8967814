package domain

import (
	"fmt"
	"path/filepath"
)

// LogDirName is the directory under a table root holding its log.
const LogDirName = "_delta_log"

// FileRef points at one log file.
type FileRef struct {
	Path    string
	Version int64
	Size    int64
	ModTime int64 // epoch millis
}

// LogSegment lists what must be replayed to reconstruct Version: an optional
// checkpoint followed by the incremental files that come after it.
type LogSegment struct {
	LogPath             string
	Version             int64
	Checkpoint          *FileRef
	Deltas              []FileRef
	LastCommitTimestamp int64
}

// Files returns every referenced file in replay order.
func (s *LogSegment) Files() []FileRef {
	files := make([]FileRef, 0, len(s.Deltas)+1)
	if s.Checkpoint != nil {
		files = append(files, *s.Checkpoint)
	}
	return append(files, s.Deltas...)
}

// CheckpointVersion returns the checkpoint version, or -1 without one.
func (s *LogSegment) CheckpointVersion() int64 {
	if s.Checkpoint == nil {
		return -1
	}
	return s.Checkpoint.Version
}

// Contiguous reports an error when the deltas do not immediately follow the
// checkpoint in strictly ascending order or do not end at Version.
func (s *LogSegment) Contiguous() error {
	next := s.CheckpointVersion() + 1
	for _, d := range s.Deltas {
		if d.Version != next {
			return ErrMissingVersion.WithDetails(fmt.Sprintf("expected version %d, found %d", next, d.Version))
		}
		next++
	}
	if last := next - 1; last != s.Version {
		return ErrMissingVersion.WithDetails(fmt.Sprintf("segment ends at %d, want %d", last, s.Version))
	}
	return nil
}

// AssertOwnership fails with *CrossTableFileError for the first file whose
// parent directory is not LogPath.
func (s *LogSegment) AssertOwnership() error {
	logPath := filepath.Clean(s.LogPath)
	for _, f := range s.Files() {
		if filepath.Clean(filepath.Dir(f.Path)) != logPath {
			return &CrossTableFileError{File: f.Path, LogPath: s.LogPath}
		}
	}
	return nil
}
