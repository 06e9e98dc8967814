package benchmark

import (
	"context"
	"fmt"
	"testing"
)

// BenchmarkReplay measures a full reconstruction from commits only.
func BenchmarkReplay(b *testing.B) {
	ctx := context.Background()
	for _, files := range FileCounts {
		root := writeTable(b, files)
		for _, parts := range PartitionCounts {
			b.Run(fmt.Sprintf("files_%d/partitions_%d", files, parts), func(b *testing.B) {
				tbl := openTable(b, root, parts)

				b.ResetTimer()
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					snap, err := tbl.Latest(ctx)
					if err != nil {
						b.Fatalf("Latest() error = %v", err)
					}
					st, err := snap.State(ctx)
					if err != nil {
						b.Fatalf("State() error = %v", err)
					}
					if st.Summary.NumOfFiles == 0 {
						b.Fatal("replay produced no files")
					}
				}
				b.StopTimer()
				reportMemory(b, "mem")
			})
		}
	}
}

// BenchmarkReplayFromCheckpoint measures reconstruction starting at a
// checkpoint of the full table.
func BenchmarkReplayFromCheckpoint(b *testing.B) {
	ctx := context.Background()
	for _, files := range FileCounts {
		b.Run(fmt.Sprintf("files_%d", files), func(b *testing.B) {
			root := writeTable(b, files)
			tbl := openTable(b, root, 50)
			snap, err := tbl.Latest(ctx)
			if err != nil {
				b.Fatal(err)
			}
			if err := tbl.Checkpoint(ctx, snap); err != nil {
				b.Fatalf("Checkpoint() error = %v", err)
			}

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				snap, err := tbl.Latest(ctx)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := snap.Summary(ctx); err != nil {
					b.Fatalf("Summary() error = %v", err)
				}
			}
		})
	}
}

// BenchmarkChecksum measures computing the checksum of a replayed state.
func BenchmarkChecksum(b *testing.B) {
	ctx := context.Background()
	root := writeTable(b, 10000)
	tbl := openTable(b, root, 50)
	snap, err := tbl.Latest(ctx)
	if err != nil {
		b.Fatal(err)
	}
	if _, err := snap.State(ctx); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := snap.ComputeChecksum(ctx); err != nil {
			b.Fatalf("ComputeChecksum() error = %v", err)
		}
	}
}
