package replay

import (
	"cmp"
	"slices"

	"github.com/spaolacci/murmur3"
)

// pathlessPartition receives every protocol, metadata and txn record so a
// single reducer sees all of them.
const pathlessPartition = 0

// PartitionOf returns the partition for a canonical path among n partitions.
func PartitionOf(path string, n int) int {
	if path == "" || n <= 1 {
		return pathlessPartition
	}
	return int(murmur3.Sum32([]byte(path)) % uint32(n))
}

// Partition groups records by canonical path into n partitions and orders
// each partition by SortKey. All records of one path share a partition. The
// input slice is not modified.
func Partition(records []Record, n int) [][]Record {
	if n < 1 {
		n = DefaultNumPartitions
	}
	parts := make([][]Record, n)
	for _, rec := range records {
		i := PartitionOf(rec.Path, n)
		parts[i] = append(parts[i], rec)
	}
	for _, part := range parts {
		slices.SortStableFunc(part, func(a, b Record) int {
			return cmp.Compare(a.SortKey, b.SortKey)
		})
	}
	return parts
}
