package storage

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/replay"
	"github.com/baumanab/delta/internal/core/snapshot"
	"github.com/baumanab/delta/internal/storage/crcstore"
)

func addFile(path string, size int64) domain.Action {
	return domain.Action{Add: &domain.AddFile{Path: path, Size: size, DataChange: true}}
}

func removeFile(path string, ts int64) domain.Action {
	return domain.Action{Remove: &domain.RemoveFile{Path: path, DeletionTimestamp: ts, DataChange: true}}
}

func newTestTable(t *testing.T, checksums func(root string) ChecksumStore) *Table {
	t.Helper()
	root := t.TempDir()
	cfg := TableConfig{
		Name:           "events",
		Root:           root,
		Snapshot:       snapshot.Config{Replay: replay.DefaultConfig()},
		TrustChecksums: true,
	}
	if checksums != nil {
		cfg.Checksums = checksums(root)
	}
	tbl, err := OpenTable(cfg)
	if err != nil {
		t.Fatalf("OpenTable() error = %v", err)
	}
	return tbl
}

func fileChecksums(t *testing.T) func(string) ChecksumStore {
	return func(root string) ChecksumStore {
		files, err := crcstore.New(filepath.Join(root, domain.LogDirName), nil)
		if err != nil {
			t.Fatal(err)
		}
		return NewFileChecksumStore(files)
	}
}

// writeHistory: v0 {a, b}, v1 removes a and adds c, v2 sets txn app=3.
func writeHistory(t *testing.T, tbl *Table) {
	t.Helper()
	log := tbl.Log()
	commits := [][]domain.Action{
		{
			{Protocol: &domain.Protocol{MinReaderVersion: 1, MinWriterVersion: 2}},
			{Metadata: &domain.Metadata{ID: "events-id", Format: domain.Format{Provider: "parquet"},
				Configuration: map[string]string{"owner": "data", snapshot.InternalPathKey: "/x"}}},
			addFile("a.parquet", 10),
			addFile("b.parquet", 20),
		},
		{removeFile("a.parquet", 1000), addFile("c.parquet", 30)},
		{{Txn: &domain.SetTransaction{AppID: "app", Version: 3}}},
	}
	for v, actions := range commits {
		if err := log.WriteCommit(int64(v), actions); err != nil {
			t.Fatal(err)
		}
	}
}

func livePaths(t *testing.T, snap *snapshot.Snapshot) []string {
	t.Helper()
	files, err := snap.AllFiles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for f := range files {
		out = append(out, filepath.Base(f.Path))
	}
	return out
}

func TestOpenTable_RequiresName(t *testing.T) {
	if _, err := OpenTable(TableConfig{Root: t.TempDir()}); err == nil {
		t.Error("OpenTable() without name error = nil, want error")
	}
}

func TestTable_OpenEmpty(t *testing.T) {
	tbl := newTestTable(t, nil)
	ctx := context.Background()

	snap, err := tbl.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if snap.Kind() != snapshot.Empty || snap.Version() != -1 {
		t.Errorf("Latest() = %v@%d, want empty@-1", snap.Kind(), snap.Version())
	}

	if _, err := tbl.Open(ctx, 0); !errors.Is(err, domain.ErrNoCommits) {
		t.Errorf("Open(0) error = %v, want ErrNoCommits", err)
	}
}

func TestTable_OpenVersions(t *testing.T) {
	tbl := newTestTable(t, nil)
	writeHistory(t, tbl)
	ctx := context.Background()

	tests := []struct {
		version    int64
		wantFiles  []string
		wantTxns   int64
		wantRemove int64
	}{
		{-1, []string{"b.parquet", "c.parquet"}, 1, 1},
		{0, []string{"a.parquet", "b.parquet"}, 0, 0},
		{1, []string{"b.parquet", "c.parquet"}, 0, 1},
	}

	for _, tt := range tests {
		snap, err := tbl.Open(ctx, tt.version)
		if err != nil {
			t.Fatalf("Open(%d) error = %v", tt.version, err)
		}
		if got := livePaths(t, snap); !slices.Equal(got, tt.wantFiles) {
			t.Errorf("Open(%d) files = %v, want %v", tt.version, got, tt.wantFiles)
		}
		sum, err := snap.Summary(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if sum.NumOfSetTransactions != tt.wantTxns || sum.NumOfRemoves != tt.wantRemove {
			t.Errorf("Open(%d) txns=%d removes=%d, want %d %d",
				tt.version, sum.NumOfSetTransactions, sum.NumOfRemoves, tt.wantTxns, tt.wantRemove)
		}
	}

	if _, err := tbl.Open(ctx, 3); !errors.Is(err, domain.ErrMissingVersion) {
		t.Errorf("Open(3) error = %v, want ErrMissingVersion", err)
	}
}

func TestTable_ChecksumFastPath(t *testing.T) {
	tbl := newTestTable(t, fileChecksums(t))
	writeHistory(t, tbl)
	ctx := context.Background()

	snap, err := tbl.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	saved, err := tbl.SaveChecksum(ctx, snap)
	if err != nil {
		t.Fatalf("SaveChecksum() error = %v", err)
	}
	if saved.NumFiles != 2 || saved.TableSizeBytes != 50 {
		t.Errorf("saved checksum = %d files / %d bytes, want 2 / 50", saved.NumFiles, saved.TableSizeBytes)
	}

	reopened, err := tbl.Latest(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := reopened.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.ReplayCount() != 0 {
		t.Errorf("ReplayCount() = %d, want 0 with a trusted checksum", reopened.ReplayCount())
	}
	if sum.NumOfFiles != 2 || sum.NumOfRemoves != -1 {
		t.Errorf("fast summary = files %d removes %d, want 2 and -1", sum.NumOfFiles, sum.NumOfRemoves)
	}

	if n, _ := reopened.NumOfRemoves(ctx); n != 1 {
		t.Errorf("NumOfRemoves() = %d, want 1", n)
	}
	if reopened.ReplayCount() != 1 {
		t.Errorf("ReplayCount() = %d, want 1 after a tombstone query", reopened.ReplayCount())
	}
	if again, _ := reopened.Summary(ctx); again.NumOfRemoves != -1 || again.NumOfFiles != 2 {
		t.Errorf("summary after replay = files %d removes %d, want the checksum's 2 and -1", again.NumOfFiles, again.NumOfRemoves)
	}
}

func TestTable_Verify(t *testing.T) {
	tbl := newTestTable(t, fileChecksums(t))
	writeHistory(t, tbl)
	ctx := context.Background()

	if _, err := tbl.Verify(ctx, -1); !errors.Is(err, domain.ErrChecksumNotFound) {
		t.Fatalf("Verify() without checksum error = %v, want ErrChecksumNotFound", err)
	}

	snap, _ := tbl.Latest(ctx)
	saved, err := tbl.SaveChecksum(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Verify(ctx, -1); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}

	forged := *saved
	forged.NumFiles = 7
	if err := tbl.checksums.Save(ctx, 2, &forged); err != nil {
		t.Fatal(err)
	}
	res, err := tbl.Verify(ctx, 2)
	if !errors.Is(err, domain.ErrChecksumMismatch) {
		t.Fatalf("Verify() error = %v, want ErrChecksumMismatch", err)
	}
	if res == nil || res.Computed.NumFiles != 2 || res.Stored.NumFiles != 7 {
		t.Errorf("Verify() result = %+v", res)
	}
}

func TestTable_SaveChecksumErrors(t *testing.T) {
	ctx := context.Background()

	noStore := newTestTable(t, nil)
	writeHistory(t, noStore)
	snap, _ := noStore.Latest(ctx)
	if _, err := noStore.SaveChecksum(ctx, snap); !errors.Is(err, domain.ErrChecksumNotFound) {
		t.Errorf("SaveChecksum() without store error = %v", err)
	}

	empty := newTestTable(t, fileChecksums(t))
	initial, _ := empty.Latest(ctx)
	if _, err := empty.SaveChecksum(ctx, initial); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("SaveChecksum(empty) error = %v, want ErrInvalidArgument", err)
	}
}

func TestTable_CheckpointAndClean(t *testing.T) {
	tbl := newTestTable(t, nil)
	writeHistory(t, tbl)
	ctx := context.Background()

	before, _ := tbl.Latest(ctx)
	if err := tbl.Checkpoint(ctx, before); err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if err := tbl.Log().WriteCommit(3, []domain.Action{addFile("d.parquet", 40)}); err != nil {
		t.Fatal(err)
	}

	removed, err := tbl.Clean(ctx, 0)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if len(removed) != 3 {
		t.Errorf("Clean() removed %v, want commits 0..2", removed)
	}

	after, err := tbl.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() after clean error = %v", err)
	}
	want := []string{"b.parquet", "c.parquet", "d.parquet"}
	if got := livePaths(t, after); !slices.Equal(got, want) {
		t.Errorf("files after clean = %v, want %v", got, want)
	}
	props, _ := after.Properties(ctx)
	if props["owner"] != "data" {
		t.Errorf("Properties() lost configuration: %v", props)
	}
	if _, ok := props[snapshot.InternalPathKey]; ok {
		t.Errorf("Properties() leaks %q", snapshot.InternalPathKey)
	}
	if n, _ := after.NumOfRemoves(ctx); n != 1 {
		t.Errorf("NumOfRemoves() after checkpoint = %d, want 1", n)
	}
}

func TestBadgerChecksumStore(t *testing.T) {
	engine := newTestBadger(t)
	ctx := context.Background()
	events := NewBadgerChecksumStore(engine, "events")
	orders := NewBadgerChecksumStore(engine, "orders")

	if _, err := events.Load(ctx, 1); !errors.Is(err, domain.ErrChecksumNotFound) {
		t.Fatalf("Load() error = %v, want ErrChecksumNotFound", err)
	}

	for v := int64(1); v <= 4; v++ {
		if err := events.Save(ctx, v, &domain.VersionChecksum{NumFiles: v, Metadata: domain.Metadata{ID: "e"}}); err != nil {
			t.Fatal(err)
		}
	}
	orders.Save(ctx, 1, &domain.VersionChecksum{NumFiles: 100})

	got, err := events.Load(ctx, 3)
	if err != nil || got.NumFiles != 3 || got.Metadata.ID != "e" {
		t.Fatalf("Load(3) = %+v, %v", got, err)
	}

	deleted, err := events.Prune(ctx, 2)
	if err != nil || deleted != 2 {
		t.Errorf("Prune() = %d, %v; want 2", deleted, err)
	}
	versions, _ := events.Versions(ctx)
	if !slices.Equal(versions, []int64{3, 4}) {
		t.Errorf("Versions() = %v, want [3 4]", versions)
	}
	if c, err := orders.Load(ctx, 1); err != nil || c.NumFiles != 100 {
		t.Errorf("other table affected: %+v, %v", c, err)
	}
}

func TestTable_WithBadgerChecksums(t *testing.T) {
	engine := newTestBadger(t)
	tbl := newTestTable(t, func(string) ChecksumStore { return NewBadgerChecksumStore(engine, "events") })
	writeHistory(t, tbl)
	ctx := context.Background()

	snap, _ := tbl.Open(ctx, 1)
	if _, err := tbl.SaveChecksum(ctx, snap); err != nil {
		t.Fatal(err)
	}
	if _, err := tbl.Verify(ctx, 1); err != nil {
		t.Errorf("Verify(1) error = %v", err)
	}
}

func TestTable_SaveChecksumPrunes(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	files, err := crcstore.New(filepath.Join(root, domain.LogDirName), nil)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := OpenTable(TableConfig{
		Name:            "events",
		Root:            root,
		Snapshot:        snapshot.Config{Replay: replay.DefaultConfig()},
		Checksums:       NewFileChecksumStore(files),
		RetainChecksums: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	writeHistory(t, tbl)

	for _, v := range []int64{0, 1, 2} {
		snap, err := tbl.Open(ctx, v)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tbl.SaveChecksum(ctx, snap); err != nil {
			t.Fatalf("SaveChecksum(%d) error = %v", v, err)
		}
	}

	if _, err := files.Load(ctx, 1); !errors.Is(err, domain.ErrChecksumNotFound) {
		t.Errorf("Load(1) error = %v, want pruned", err)
	}
	if _, err := files.Load(ctx, 2); err != nil {
		t.Errorf("Load(2) error = %v, want the newest kept", err)
	}
}
