package benchmark

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/replay"
	"github.com/baumanab/delta/internal/core/snapshot"
	"github.com/baumanab/delta/internal/storage"
	"github.com/baumanab/delta/internal/storage/txlog"
)

// FileCounts are the live file counts of the generated tables.
var FileCounts = []int{1000, 10000, 50000}

// PartitionCounts are the replay partition counts compared.
var PartitionCounts = []int{1, 8, 50}

// commitSize is the number of adds per generated commit.
const commitSize = 500

// writeTable writes a log adding files in commits of commitSize. Every
// fourth commit also removes the first file of the previous commit, and
// every commit bumps one of eight application transactions.
func writeTable(b *testing.B, files int) string {
	b.Helper()
	root := b.TempDir()
	log, err := txlog.NewStore(root, nil)
	if err != nil {
		b.Fatalf("NewStore() error = %v", err)
	}

	actions := []domain.Action{
		{Protocol: &domain.Protocol{MinReaderVersion: 1, MinWriterVersion: 2}},
		{Metadata: &domain.Metadata{ID: "bench", Format: domain.Format{Provider: "parquet"}, PartitionColumns: []string{"day"}}},
	}
	version := int64(0)
	for i := 0; i < files; i++ {
		actions = append(actions, domain.Action{Add: &domain.AddFile{
			Path:             fmt.Sprintf("day=%03d/part-%06d.parquet", i%365, i),
			PartitionValues:  map[string]string{"day": fmt.Sprintf("%03d", i%365)},
			Size:             int64(1024 + i%4096),
			ModificationTime: 1_700_000_000_000 + int64(i),
			DataChange:       true,
		}})
		if (i+1)%commitSize != 0 && i != files-1 {
			continue
		}
		if version > 0 && version%4 == 0 {
			first := i + 1 - 2*commitSize
			actions = append(actions, domain.Action{Remove: &domain.RemoveFile{
				Path:              fmt.Sprintf("day=%03d/part-%06d.parquet", first%365, first),
				DeletionTimestamp: 1_800_000_000_000,
				DataChange:        true,
			}})
		}
		actions = append(actions, domain.Action{Txn: &domain.SetTransaction{
			AppID:   fmt.Sprintf("writer-%d", version%8),
			Version: version,
		}})
		if err := log.WriteCommit(version, actions); err != nil {
			b.Fatalf("WriteCommit(%d) error = %v", version, err)
		}
		version++
		actions = actions[:0]
	}
	return root
}

func openTable(b *testing.B, root string, partitions int) *storage.Table {
	b.Helper()
	cfg := replay.DefaultConfig()
	cfg.NumPartitions = partitions
	tbl, err := storage.OpenTable(storage.TableConfig{
		Name:     "bench",
		Root:     root,
		Snapshot: snapshot.Config{Replay: cfg},
	})
	if err != nil {
		b.Fatalf("OpenTable() error = %v", err)
	}
	return tbl
}

// reportMemory reports heap in use after a collection.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.HeapInuse)/(1024*1024), prefix+"_heap_MB")
}
