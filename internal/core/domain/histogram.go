package domain

import (
	"slices"
	"sort"
)

// FileSizeHistogram buckets live file sizes. Bin i covers
// [SortedBinBoundaries[i], SortedBinBoundaries[i+1]).
type FileSizeHistogram struct {
	SortedBinBoundaries []int64 `json:"sortedBinBoundaries"`
	FileCounts          []int64 `json:"fileCounts"`
	TotalBytes          []int64 `json:"totalBytes"`
}

const (
	kib = int64(1) << 10
	mib = int64(1) << 20
	gib = int64(1) << 30
)

// DefaultBinBoundaries: powers of two up to 4MiB, 4MiB steps up to 256MiB,
// then powers of two up to 256GiB.
func DefaultBinBoundaries() []int64 {
	bounds := []int64{0}
	for b := 8 * kib; b <= 4*mib; b *= 2 {
		bounds = append(bounds, b)
	}
	for b := 8 * mib; b <= 256*mib; b += 4 * mib {
		bounds = append(bounds, b)
	}
	for b := 512 * mib; b <= 256*gib; b *= 2 {
		bounds = append(bounds, b)
	}
	return bounds
}

// NewFileSizeHistogram returns an empty histogram over the given boundaries,
// which must be ascending and start at 0.
func NewFileSizeHistogram(boundaries []int64) *FileSizeHistogram {
	return &FileSizeHistogram{
		SortedBinBoundaries: slices.Clone(boundaries),
		FileCounts:          make([]int64, len(boundaries)),
		TotalBytes:          make([]int64, len(boundaries)),
	}
}

// NewDefaultFileSizeHistogram uses DefaultBinBoundaries.
func NewDefaultFileSizeHistogram() *FileSizeHistogram {
	return NewFileSizeHistogram(DefaultBinBoundaries())
}

// Insert records one file of the given size. Negative sizes are ignored.
func (h *FileSizeHistogram) Insert(size int64) {
	if size < 0 || len(h.SortedBinBoundaries) == 0 {
		return
	}
	i := sort.Search(len(h.SortedBinBoundaries), func(i int) bool {
		return h.SortedBinBoundaries[i] > size
	}) - 1
	if i < 0 {
		return
	}
	h.FileCounts[i]++
	h.TotalBytes[i] += size
}

// Merge adds other into h. Both must share boundaries; the operation is
// commutative and associative.
func (h *FileSizeHistogram) Merge(other *FileSizeHistogram) {
	if other == nil {
		return
	}
	for i := range h.FileCounts {
		if i >= len(other.FileCounts) {
			break
		}
		h.FileCounts[i] += other.FileCounts[i]
		h.TotalBytes[i] += other.TotalBytes[i]
	}
}

// Clone returns a deep copy.
func (h *FileSizeHistogram) Clone() *FileSizeHistogram {
	if h == nil {
		return nil
	}
	return &FileSizeHistogram{
		SortedBinBoundaries: slices.Clone(h.SortedBinBoundaries),
		FileCounts:          slices.Clone(h.FileCounts),
		TotalBytes:          slices.Clone(h.TotalBytes),
	}
}

// Equal reports whether both histograms have identical bins and counts.
func (h *FileSizeHistogram) Equal(other *FileSizeHistogram) bool {
	if h == nil || other == nil {
		return h == other
	}
	return slices.Equal(h.SortedBinBoundaries, other.SortedBinBoundaries) &&
		slices.Equal(h.FileCounts, other.FileCounts) &&
		slices.Equal(h.TotalBytes, other.TotalBytes)
}
