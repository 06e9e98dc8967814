package replay

import "testing"

func TestPartition_GroupsByPath(t *testing.T) {
	records := []Record{
		{Path: "/t/a", SortKey: SortKeyOf(1, 0)},
		{Path: "/t/b", SortKey: SortKeyOf(0, 1)},
		{Path: "", SortKey: SortKeyOf(0, 0), Action: protocol(1, 2)},
		{Path: "/t/a", SortKey: SortKeyOf(0, 2)},
		{Path: "", SortKey: SortKeyOf(2, 0), Action: metadata("m")},
	}

	for _, n := range []int{1, 2, 7, DefaultNumPartitions} {
		parts := Partition(records, n)
		if len(parts) != n {
			t.Fatalf("n=%d: len(parts) = %d", n, len(parts))
		}

		where := make(map[string]int)
		total := 0
		for i, part := range parts {
			for j, rec := range part {
				total++
				if j > 0 && part[j-1].SortKey > rec.SortKey {
					t.Errorf("n=%d: partition %d not sorted at %d", n, i, j)
				}
				if prev, ok := where[rec.Path]; ok && prev != i {
					t.Errorf("n=%d: path %q split across partitions %d and %d", n, rec.Path, prev, i)
				}
				where[rec.Path] = i
			}
		}
		if total != len(records) {
			t.Errorf("n=%d: %d records after partitioning, want %d", n, total, len(records))
		}
		if where[""] != pathlessPartition {
			t.Errorf("n=%d: path-less records in partition %d, want %d", n, where[""], pathlessPartition)
		}
	}
}

func TestPartition_DefaultsInvalidCount(t *testing.T) {
	if got := len(Partition(nil, 0)); got != DefaultNumPartitions {
		t.Errorf("len(Partition(nil, 0)) = %d, want %d", got, DefaultNumPartitions)
	}
}

func TestSortKeyOf_Monotonic(t *testing.T) {
	if !(SortKeyOf(0, 1<<20) < SortKeyOf(1, 0)) {
		t.Error("records of a later file must sort after every record of an earlier file")
	}
	if !(SortKeyOf(3, 1) < SortKeyOf(3, 2)) {
		t.Error("records within a file must keep their order")
	}
}
