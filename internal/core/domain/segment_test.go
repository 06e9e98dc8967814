package domain

import (
	"errors"
	"path/filepath"
	"testing"
)

func testSegment(logPath string) *LogSegment {
	return &LogSegment{
		LogPath:    logPath,
		Version:    12,
		Checkpoint: &FileRef{Path: filepath.Join(logPath, "00000000000000000010.checkpoint.log"), Version: 10},
		Deltas: []FileRef{
			{Path: filepath.Join(logPath, "00000000000000000011.log"), Version: 11},
			{Path: filepath.Join(logPath, "00000000000000000012.log"), Version: 12},
		},
	}
}

func TestLogSegment_Files(t *testing.T) {
	seg := testSegment("/tables/t1/_delta_log")
	files := seg.Files()
	if len(files) != 3 {
		t.Fatalf("len(Files()) = %d, want 3", len(files))
	}
	want := []int64{10, 11, 12}
	for i, f := range files {
		if f.Version != want[i] {
			t.Errorf("Files()[%d].Version = %d, want %d", i, f.Version, want[i])
		}
	}
}

func TestLogSegment_Contiguous(t *testing.T) {
	t.Run("contiguous", func(t *testing.T) {
		if err := testSegment("/t/_delta_log").Contiguous(); err != nil {
			t.Errorf("Contiguous() error = %v", err)
		}
	})

	t.Run("gap", func(t *testing.T) {
		seg := testSegment("/t/_delta_log")
		seg.Deltas = seg.Deltas[1:]
		if err := seg.Contiguous(); !errors.Is(err, ErrMissingVersion) {
			t.Errorf("Contiguous() error = %v, want ErrMissingVersion", err)
		}
	})

	t.Run("wrong end version", func(t *testing.T) {
		seg := testSegment("/t/_delta_log")
		seg.Version = 13
		if err := seg.Contiguous(); !errors.Is(err, ErrMissingVersion) {
			t.Errorf("Contiguous() error = %v, want ErrMissingVersion", err)
		}
	})

	t.Run("no checkpoint starts at zero", func(t *testing.T) {
		seg := &LogSegment{LogPath: "/t/_delta_log", Version: 1, Deltas: []FileRef{{Version: 0}, {Version: 1}}}
		if err := seg.Contiguous(); err != nil {
			t.Errorf("Contiguous() error = %v", err)
		}
	})
}

func TestLogSegment_AssertOwnership(t *testing.T) {
	seg := testSegment("/tables/t1/_delta_log")
	if err := seg.AssertOwnership(); err != nil {
		t.Fatalf("AssertOwnership() error = %v", err)
	}

	seg.Deltas[1].Path = "/tables/t2/_delta_log/00000000000000000012.log"
	err := seg.AssertOwnership()

	var cte *CrossTableFileError
	if !errors.As(err, &cte) {
		t.Fatalf("AssertOwnership() error = %v, want *CrossTableFileError", err)
	}
	if cte.File != seg.Deltas[1].Path {
		t.Errorf("File = %q, want %q", cte.File, seg.Deltas[1].Path)
	}
	if !errors.Is(err, ErrCrossTableFile) {
		t.Error("errors.Is(err, ErrCrossTableFile) = false, want true")
	}
}
