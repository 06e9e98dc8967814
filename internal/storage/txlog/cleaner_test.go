package txlog

import (
	"context"
	"crypto/sha256"
	"testing"
)

func appendSHA(body []byte) []byte {
	sum := sha256.Sum256(body)
	return append(body, sum[:]...)
}

func TestCleaner_Clean(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCommit(t, s, 0, headActions()...)
	for v := int64(1); v <= 20; v++ {
		mustCommit(t, s, v, addAction(CommitFilename(v), v))
	}
	for _, v := range []int64{5, 10, 15} {
		if err := s.WriteCheckpoint(v, headActions()); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := NewCleaner(s, WithRetainVersions(8)).Clean(ctx)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	// horizon = 20-8 = 12, boundary checkpoint = 10: commits 0..10 and checkpoint 5 go.
	if len(removed) != 12 {
		t.Errorf("removed %d files, want 12: %v", len(removed), removed)
	}

	for _, v := range []int64{10, 12, 20} {
		seg, err := s.Segment(ctx, v)
		if err != nil {
			t.Errorf("Segment(%d) after clean error = %v", v, err)
			continue
		}
		if seg.Checkpoint == nil {
			t.Errorf("Segment(%d) has no checkpoint after clean", v)
		}
	}
	if _, err := s.Segment(ctx, 7); err == nil {
		t.Error("Segment(7) after clean error = nil, want missing version")
	}
}

func TestCleaner_NothingBeforeHorizon(t *testing.T) {
	s := newTestStore(t)
	mustCommit(t, s, 0, headActions()...)
	mustCommit(t, s, 1, addAction("a", 1))

	removed, err := NewCleaner(s).Clean(context.Background())
	if err != nil || len(removed) != 0 {
		t.Errorf("Clean() = %v, %v; want nothing removed", removed, err)
	}
}
