package replay

import (
	"cmp"
	"maps"
	"slices"

	"github.com/baumanab/delta/internal/core/domain"
)

// Summary holds the aggregate counters of a reconciled state.
type Summary struct {
	SizeInBytes          int64
	NumOfFiles           int64
	NumOfRemoves         int64
	NumOfMetadata        int64 // every metadata record seen, not only the survivor
	NumOfProtocol        int64 // every protocol record seen, not only the survivor
	NumOfSetTransactions int64
	Histogram            *domain.FileSizeHistogram
}

// State is the reconciled view of one table version. It is immutable once
// returned; accessors hand out copies or read-only iteration.
type State struct {
	Version    int64
	Protocol   domain.Protocol
	Metadata   domain.Metadata
	Summary    Summary
	files      []domain.AddFile    // sorted by path
	tombstones []domain.RemoveFile // sorted by path
	txns       map[string]domain.SetTransaction
}

// Files returns the live files sorted by path. Callers must not modify it.
func (s *State) Files() []domain.AddFile { return s.files }

// Tombstones returns the unexpired tombstones sorted by path. Callers must
// not modify it.
func (s *State) Tombstones() []domain.RemoveFile { return s.tombstones }

// SetTransactions returns the surviving transactions sorted by app id.
func (s *State) SetTransactions() []domain.SetTransaction {
	out := make([]domain.SetTransaction, 0, len(s.txns))
	for _, id := range slices.Sorted(maps.Keys(s.txns)) {
		out = append(out, s.txns[id])
	}
	return out
}

// Transactions maps app id to its latest committed version.
func (s *State) Transactions() map[string]int64 {
	out := make(map[string]int64, len(s.txns))
	for id, txn := range s.txns {
		out[id] = txn.Version
	}
	return out
}

// Aggregate merges fragments and validates that the reduction found a
// protocol and a metadata action. A missing one yields
// *domain.ActionNotFoundError for version.
func Aggregate(version int64, fragments []*Fragment) (*State, error) {
	acc := &Fragment{txns: make(map[string]keyedTxn)}
	for _, f := range fragments {
		if f != nil {
			acc.Merge(f)
		}
	}

	if acc.protocol == nil {
		return nil, &domain.ActionNotFoundError{Kind: domain.KindProtocol, Version: version}
	}
	if acc.metadata == nil {
		return nil, &domain.ActionNotFoundError{Kind: domain.KindMetadata, Version: version}
	}

	slices.SortFunc(acc.Files, func(a, b domain.AddFile) int { return cmp.Compare(a.Path, b.Path) })
	slices.SortFunc(acc.Tombstones, func(a, b domain.RemoveFile) int { return cmp.Compare(a.Path, b.Path) })

	txns := make(map[string]domain.SetTransaction, len(acc.txns))
	for id, kt := range acc.txns {
		txns[id] = kt.txn
	}

	return &State{
		Version:  version,
		Protocol: *acc.protocol,
		Metadata: *acc.metadata,
		Summary: Summary{
			SizeInBytes:          acc.SizeInBytes,
			NumOfFiles:           int64(len(acc.Files)),
			NumOfRemoves:         int64(len(acc.Tombstones)),
			NumOfMetadata:        acc.NumMetadata,
			NumOfProtocol:        acc.NumProtocol,
			NumOfSetTransactions: int64(len(txns)),
			Histogram:            acc.Histogram,
		},
		files:      acc.Files,
		tombstones: acc.Tombstones,
		txns:       txns,
	}, nil
}

// EmptyState is the state of a table before its first commit: the given
// protocol and metadata, no files and one record of each mandatory kind.
func EmptyState(protocol domain.Protocol, metadata domain.Metadata, histogram bool) *State {
	s := &State{
		Version:  -1,
		Protocol: protocol,
		Metadata: metadata,
		Summary: Summary{
			NumOfMetadata: 1,
			NumOfProtocol: 1,
		},
		txns: map[string]domain.SetTransaction{},
	}
	if histogram {
		s.Summary.Histogram = domain.NewDefaultFileSizeHistogram()
	}
	return s
}
