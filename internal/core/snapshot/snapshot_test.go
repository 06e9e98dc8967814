package snapshot

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/replay"
)

const testRoot = "/tables/events"

var testLogPath = filepath.Join(testRoot, domain.LogDirName)

type memStore struct {
	files map[string][]domain.Action
	reads atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]domain.Action)}
}

func (m *memStore) ReadFile(_ context.Context, ref domain.FileRef) ([]domain.Action, error) {
	m.reads.Add(1)
	actions, ok := m.files[ref.Path]
	if !ok {
		return nil, fmt.Errorf("no such file %s", ref.Path)
	}
	return actions, nil
}

func (m *memStore) CanonicalizePath(raw string) (string, error) {
	return replay.CanonicalizePath(testRoot, raw)
}

func (m *memStore) put(name string, version int64, actions ...domain.Action) domain.FileRef {
	ref := domain.FileRef{Path: filepath.Join(testLogPath, name), Version: version}
	m.files[ref.Path] = actions
	return ref
}

func add(path string, size int64) domain.Action {
	return domain.Action{Add: &domain.AddFile{Path: path, Size: size, DataChange: true}}
}

func remove(path string, ts int64) domain.Action {
	return domain.Action{Remove: &domain.RemoveFile{Path: path, DeletionTimestamp: ts, DataChange: true}}
}

func protocol(r, w int) domain.Action {
	return domain.Action{Protocol: &domain.Protocol{MinReaderVersion: r, MinWriterVersion: w}}
}

func metadata(id string, conf map[string]string) domain.Action {
	return domain.Action{Metadata: &domain.Metadata{ID: id, Format: domain.Format{Provider: "parquet"}, Configuration: conf}}
}

// scenario: checkpoint@10 {A,B}, v11 adds C, v12 removes A at ts 500.
func scenario(m *memStore, head ...domain.Action) *domain.LogSegment {
	if head == nil {
		head = []domain.Action{protocol(1, 2), metadata("tbl-1", nil)}
	}
	cp := m.put("00000000000000000010.checkpoint.log", 10, append(head, add("A", 100), add("B", 200))...)
	return &domain.LogSegment{
		LogPath:    testLogPath,
		Version:    12,
		Checkpoint: &cp,
		Deltas: []domain.FileRef{
			m.put("00000000000000000011.log", 11, add("C", 300)),
			m.put("00000000000000000012.log", 12, remove("A", 500)),
		},
	}
}

func testConfig(store replay.LogStore) Config {
	return Config{TableRoot: testRoot, Store: store, Replay: replay.DefaultConfig()}
}

func collect[T any](seq iter.Seq[T]) []T {
	var out []T
	for v := range seq {
		out = append(out, v)
	}
	return out
}

func TestSnapshot_Scenario(t *testing.T) {
	tests := []struct {
		name           string
		minRetention   int64
		wantTombstones int
	}{
		{"tombstone retained", 0, 1},
		{"tombstone expired", 1000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			cfg := testConfig(store)
			cfg.Replay.MinFileRetentionTimestamp = tt.minRetention
			ctx := context.Background()

			snap, err := New(ctx, cfg, scenario(store))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			files, err := snap.AllFiles(ctx)
			if err != nil {
				t.Fatalf("AllFiles() error = %v", err)
			}
			var got []string
			for f := range files {
				got = append(got, f.Path)
			}
			if want := []string{testRoot + "/B", testRoot + "/C"}; !slices.Equal(got, want) {
				t.Errorf("AllFiles() = %v, want %v", got, want)
			}
			if again := collect(files); len(again) != 2 {
				t.Errorf("second iteration yielded %d files, want 2", len(again))
			}

			tombs, err := snap.Tombstones(ctx)
			if err != nil {
				t.Fatalf("Tombstones() error = %v", err)
			}
			if got := collect(tombs); len(got) != tt.wantTombstones {
				t.Errorf("Tombstones() = %v, want %d entries", got, tt.wantTombstones)
			}
			if n, _ := snap.NumOfFiles(ctx); n != 2 {
				t.Errorf("NumOfFiles() = %d, want 2", n)
			}
			if n, _ := snap.NumOfRemoves(ctx); n != int64(tt.wantTombstones) {
				t.Errorf("NumOfRemoves() = %d, want %d", n, tt.wantTombstones)
			}
			if n, _ := snap.SizeInBytes(ctx); n != 500 {
				t.Errorf("SizeInBytes() = %d, want 500", n)
			}
			if snap.Version() != 12 || snap.Kind() != Reconstructed {
				t.Errorf("Version/Kind = %d/%v, want 12/reconstructed", snap.Version(), snap.Kind())
			}
		})
	}
}

func TestSnapshot_ReplaysExactlyOnce(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	snap, err := New(ctx, testConfig(store), scenario(store))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first, _ := snap.ComputeChecksum(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap.Protocol(ctx)
			snap.Metadata(ctx)
			snap.SetTransactions(ctx)
			snap.SizeInBytes(ctx)
			snap.NumOfFiles(ctx)
			snap.NumOfRemoves(ctx)
			snap.FileSizeHistogram(ctx)
			snap.AllFiles(ctx)
			snap.Tombstones(ctx)
			snap.Transactions(ctx)
			snap.Properties(ctx)
		}()
	}
	wg.Wait()

	second, _ := snap.ComputeChecksum(ctx)
	if first.FingerprintHex() != second.FingerprintHex() || len(first.Diff(second)) != 0 {
		t.Error("repeated ComputeChecksum() results differ")
	}
	if got := snap.ReplayCount(); got != 1 {
		t.Errorf("ReplayCount() = %d, want 1", got)
	}
	if got := store.reads.Load(); got != 3 {
		t.Errorf("log files read = %d, want 3", got)
	}
}

func TestSnapshot_MissingMandatoryActions(t *testing.T) {
	tests := []struct {
		name     string
		head     []domain.Action
		wantKind domain.ActionKind
	}{
		{"no protocol", []domain.Action{metadata("m", nil)}, domain.KindProtocol},
		{"no metadata", []domain.Action{protocol(1, 2)}, domain.KindMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			_, err := New(context.Background(), testConfig(store), scenario(store, tt.head...))

			var anf *domain.ActionNotFoundError
			if !errors.As(err, &anf) {
				t.Fatalf("New() error = %v, want *ActionNotFoundError", err)
			}
			if anf.Kind != tt.wantKind || anf.Version != 12 {
				t.Errorf("error = (%v, %d), want (%v, 12)", anf.Kind, anf.Version, tt.wantKind)
			}
		})
	}
}

func TestSnapshot_CrossTableFile(t *testing.T) {
	t.Run("file from another table", func(t *testing.T) {
		store := newMemStore()
		seg := scenario(store)
		seg.Deltas[0].Path = "/tables/other/_delta_log/00000000000000000011.log"

		snap, err := New(context.Background(), testConfig(store), seg)
		if !errors.Is(err, domain.ErrCrossTableFile) {
			t.Fatalf("New() error = %v, want ErrCrossTableFile", err)
		}
		if snap != nil {
			t.Error("New() returned a snapshot alongside the error")
		}
		if store.reads.Load() != 0 {
			t.Errorf("log files read = %d, want 0", store.reads.Load())
		}
	})

	t.Run("segment of another table", func(t *testing.T) {
		store := newMemStore()
		seg := scenario(store)
		seg.LogPath = "/tables/other/_delta_log"

		var cte *domain.CrossTableFileError
		if _, err := New(context.Background(), testConfig(store), seg); !errors.As(err, &cte) {
			t.Fatalf("New() error = %v, want *CrossTableFileError", err)
		}
	})
}

func TestSnapshot_UnsupportedProtocol(t *testing.T) {
	store := newMemStore()
	seg := scenario(store, protocol(3, 7), metadata("m", nil))

	_, err := New(context.Background(), testConfig(store), seg)

	var upe *domain.UnsupportedProtocolError
	if !errors.As(err, &upe) {
		t.Fatalf("New() error = %v, want *UnsupportedProtocolError", err)
	}
	if upe.MaxReaderVersion != MaxReaderVersion || upe.Protocol.MinReaderVersion != 3 {
		t.Errorf("error = %+v", upe)
	}
}

func TestSnapshot_Properties(t *testing.T) {
	store := newMemStore()
	conf := map[string]string{
		"delta.appendOnly":           "true",
		InternalPathKey:              "/somewhere",
		"delta.logRetentionDuration": "interval 30 days",
	}
	seg := scenario(store, protocol(1, 2), metadata("m", conf))

	snap, err := New(context.Background(), testConfig(store), seg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	props, err := snap.Properties(context.Background())
	if err != nil {
		t.Fatalf("Properties() error = %v", err)
	}

	want := map[string]string{
		"delta.appendOnly":           "true",
		"delta.logRetentionDuration": "interval 30 days",
		PropMinReaderVersion:         "1",
		PropMinWriterVersion:         "2",
	}
	if len(props) != len(want) {
		t.Errorf("Properties() = %v, want %v", props, want)
	}
	for k, v := range want {
		if props[k] != v {
			t.Errorf("Properties()[%q] = %q, want %q", k, props[k], v)
		}
	}
}

func TestSnapshot_TrustedChecksumSkipsReplay(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	reference, err := New(ctx, testConfig(store), scenario(store))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sum, _ := reference.ComputeChecksum(ctx)
	store.reads.Store(0)

	snap, err := New(ctx, testConfig(store), scenario(store), WithChecksum(sum))
	if err != nil {
		t.Fatalf("New(WithChecksum) error = %v", err)
	}
	if n, _ := snap.NumOfFiles(ctx); n != 2 {
		t.Errorf("NumOfFiles() = %d, want 2", n)
	}
	if snap.ReplayCount() != 0 || store.reads.Load() != 0 {
		t.Fatalf("replays = %d reads = %d, want none", snap.ReplayCount(), store.reads.Load())
	}

	if err := snap.VerifyChecksum(ctx); err != nil {
		t.Errorf("VerifyChecksum() error = %v", err)
	}
	if snap.ReplayCount() != 1 {
		t.Errorf("ReplayCount() = %d, want 1 after verification", snap.ReplayCount())
	}
}

func TestSnapshot_VerifyChecksumMismatch(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	forged := &domain.VersionChecksum{
		TableSizeBytes: 1,
		NumFiles:       9,
		NumMetadata:    1,
		NumProtocol:    1,
		Protocol:       domain.Protocol{MinReaderVersion: 1, MinWriterVersion: 2},
		Metadata:       domain.Metadata{ID: "tbl-1"},
	}

	snap, err := New(ctx, testConfig(store), scenario(store), WithChecksum(forged))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := snap.VerifyChecksum(ctx); !errors.Is(err, domain.ErrChecksumMismatch) {
		t.Errorf("VerifyChecksum() error = %v, want ErrChecksumMismatch", err)
	}
	if n, _ := snap.NumOfFiles(ctx); n != 9 {
		t.Errorf("NumOfFiles() after replay = %d, want the checksum's 9", n)
	}
	files, _ := snap.AllFiles(ctx)
	if got := len(collect(files)); got != 2 {
		t.Errorf("AllFiles() = %d files, want 2", got)
	}
}

func TestSnapshot_ChecksumAnswersStayFixed(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	stale := &domain.VersionChecksum{
		TableSizeBytes: 999,
		NumFiles:       2,
		NumMetadata:    1,
		NumProtocol:    1,
		Protocol:       domain.Protocol{MinReaderVersion: 1, MinWriterVersion: 2},
		Metadata:       domain.Metadata{ID: "tbl-1"},
	}

	snap, err := New(ctx, testConfig(store), scenario(store), WithChecksum(stale))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	before, err := snap.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if before.NumOfRemoves != -1 || before.SizeInBytes != 999 {
		t.Fatalf("Summary() = removes %d size %d, want -1 and 999", before.NumOfRemoves, before.SizeInBytes)
	}

	if n, _ := snap.NumOfRemoves(ctx); n != 1 {
		t.Errorf("NumOfRemoves() = %d, want 1", n)
	}
	files, _ := snap.AllFiles(ctx)
	if got := len(collect(files)); got != 2 {
		t.Errorf("AllFiles() = %d files, want 2", got)
	}
	if snap.ReplayCount() != 1 {
		t.Fatalf("ReplayCount() = %d, want 1", snap.ReplayCount())
	}

	after, err := snap.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if after != before {
		t.Errorf("Summary() after replay = %+v, want %+v", after, before)
	}
	if size, _ := snap.SizeInBytes(ctx); size != 999 {
		t.Errorf("SizeInBytes() = %d, want 999", size)
	}
	if md, _ := snap.Metadata(ctx); md.ID != "tbl-1" {
		t.Errorf("Metadata().ID = %q, want tbl-1", md.ID)
	}
}

func TestSnapshot_ConcurrentFirstReplay(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	reference, err := New(ctx, testConfig(store), scenario(store))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sum, _ := reference.ComputeChecksum(ctx)
	store.reads.Store(0)

	snap, err := New(ctx, testConfig(store), scenario(store), WithChecksum(sum))
	if err != nil {
		t.Fatalf("New(WithChecksum) error = %v", err)
	}
	if snap.ReplayState() != Uncomputed {
		t.Fatalf("ReplayState() = %v, want %v", snap.ReplayState(), Uncomputed)
	}

	start := make(chan struct{})
	fingerprints := make([]string, 16)
	var wg sync.WaitGroup
	for i := range fingerprints {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			snap.NumOfRemoves(ctx)
			snap.AllFiles(ctx)
			snap.Tombstones(ctx)
			snap.SetTransactions(ctx)
			if c, err := snap.ComputeChecksum(ctx); err == nil {
				fingerprints[i] = c.FingerprintHex()
			}
		}(i)
	}
	close(start)
	wg.Wait()

	if got := snap.ReplayCount(); got != 1 {
		t.Errorf("ReplayCount() = %d, want 1", got)
	}
	if got := store.reads.Load(); got != 3 {
		t.Errorf("log files read = %d, want 3", got)
	}
	for i, fp := range fingerprints {
		if fp != sum.FingerprintHex() {
			t.Errorf("goroutine %d fingerprint = %q, want %q", i, fp, sum.FingerprintHex())
		}
	}
}

func TestSnapshot_VerifyWithoutChecksum(t *testing.T) {
	store := newMemStore()
	snap, err := New(context.Background(), testConfig(store), scenario(store))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := snap.VerifyChecksum(context.Background()); !errors.Is(err, domain.ErrChecksumNotFound) {
		t.Errorf("VerifyChecksum() error = %v, want ErrChecksumNotFound", err)
	}
}

func TestNewInitial(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	snap := NewInitial(testConfig(store),
		WithConfiguration(map[string]string{"delta.appendOnly": "true"}),
		WithClock(func() time.Time { return now }))

	checks := []struct {
		name string
		get  func(context.Context) (int64, error)
		want int64
	}{
		{"NumOfFiles", snap.NumOfFiles, 0},
		{"SizeInBytes", snap.SizeInBytes, 0},
		{"NumOfMetadata", snap.NumOfMetadata, 1},
		{"NumOfProtocol", snap.NumOfProtocol, 1},
		{"NumOfRemoves", snap.NumOfRemoves, 0},
		{"NumOfSetTransactions", snap.NumOfSetTransactions, 0},
	}
	for _, c := range checks {
		got, err := c.get(ctx)
		if err != nil {
			t.Fatalf("%s() error = %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("%s() = %d, want %d", c.name, got, c.want)
		}
	}

	p, _ := snap.Protocol(ctx)
	if p != domain.DefaultProtocol() {
		t.Errorf("Protocol() = %+v, want %+v", p, domain.DefaultProtocol())
	}
	md, _ := snap.Metadata(ctx)
	if md.ID == "" || md.CreatedTime == nil || *md.CreatedTime != now.UnixMilli() {
		t.Errorf("Metadata() = %+v", md)
	}
	props, _ := snap.Properties(ctx)
	if props["delta.appendOnly"] != "true" || props[PropMinWriterVersion] != "2" {
		t.Errorf("Properties() = %v", props)
	}
	files, _ := snap.AllFiles(ctx)
	if got := collect(files); len(got) != 0 {
		t.Errorf("AllFiles() = %v, want empty", got)
	}
	if c, err := snap.ComputeChecksum(ctx); err != nil || c.NumFiles != 0 || c.NumMetadata != 1 {
		t.Errorf("ComputeChecksum() = %+v, %v", c, err)
	}

	if snap.Version() != -1 || snap.Kind() != Empty {
		t.Errorf("Version/Kind = %d/%v, want -1/empty", snap.Version(), snap.Kind())
	}
	if store.reads.Load() != 0 || snap.ReplayCount() != 0 {
		t.Errorf("reads = %d replays = %d, want none", store.reads.Load(), snap.ReplayCount())
	}
}
