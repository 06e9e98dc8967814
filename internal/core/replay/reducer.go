package replay

import "github.com/baumanab/delta/internal/core/domain"

type keyedTxn struct {
	txn domain.SetTransaction
	key uint64
}

// Fragment is the reduction of one partition. Fragments produced from
// disjoint partitions can be merged in any order.
type Fragment struct {
	Files      []domain.AddFile
	Tombstones []domain.RemoveFile

	protocol    *domain.Protocol
	protocolKey uint64
	metadata    *domain.Metadata
	metadataKey uint64
	txns        map[string]keyedTxn

	SizeInBytes int64
	NumProtocol int64
	NumMetadata int64
	Histogram   *domain.FileSizeHistogram
}

func newFragment(cfg Config) *Fragment {
	f := &Fragment{txns: make(map[string]keyedTxn)}
	if cfg.Histogram {
		f.Histogram = domain.NewDefaultFileSizeHistogram()
	}
	return f
}

// Reduce folds one partition, which must be ordered by SortKey, into a
// Fragment. The latest record per path wins; expired tombstones and
// transactions are left out of the result.
func Reduce(partition []Record, cfg Config) *Fragment {
	f := newFragment(cfg)
	latest := make(map[string]Record)

	for _, rec := range partition {
		switch a := rec.Action; {
		case rec.Path != "":
			latest[rec.Path] = rec
		case a.Protocol != nil:
			p := *a.Protocol
			f.protocol, f.protocolKey = &p, rec.SortKey
			f.NumProtocol++
		case a.Metadata != nil:
			m := *a.Metadata
			f.metadata, f.metadataKey = &m, rec.SortKey
			f.NumMetadata++
		case a.Txn != nil:
			f.txns[a.Txn.AppID] = keyedTxn{txn: *a.Txn, key: rec.SortKey}
		}
	}

	for appID, kt := range f.txns {
		if cfg.txnExpired(kt.txn.LastUpdated) {
			delete(f.txns, appID)
		}
	}

	// Paths are rewritten to their canonical form only for survivors.
	for path, rec := range latest {
		switch a := rec.Action.WithPath(path); {
		case a.Add != nil:
			f.Files = append(f.Files, *a.Add)
			f.SizeInBytes += a.Add.Size
			if f.Histogram != nil {
				f.Histogram.Insert(a.Add.Size)
			}
		case a.Remove != nil:
			if !cfg.tombstoneExpired(a.Remove.DeletionTimestamp) {
				f.Tombstones = append(f.Tombstones, *a.Remove)
			}
		}
	}
	return f
}

// Merge folds other into f. Counters add up; protocol, metadata and
// transactions keep the record with the higher sort key.
func (f *Fragment) Merge(other *Fragment) {
	f.Files = append(f.Files, other.Files...)
	f.Tombstones = append(f.Tombstones, other.Tombstones...)
	f.SizeInBytes += other.SizeInBytes
	f.NumProtocol += other.NumProtocol
	f.NumMetadata += other.NumMetadata

	if other.protocol != nil && (f.protocol == nil || other.protocolKey > f.protocolKey) {
		f.protocol, f.protocolKey = other.protocol, other.protocolKey
	}
	if other.metadata != nil && (f.metadata == nil || other.metadataKey > f.metadataKey) {
		f.metadata, f.metadataKey = other.metadata, other.metadataKey
	}
	for appID, kt := range other.txns {
		if cur, ok := f.txns[appID]; !ok || kt.key > cur.key {
			f.txns[appID] = kt
		}
	}

	switch {
	case f.Histogram == nil:
		f.Histogram = other.Histogram.Clone()
	default:
		f.Histogram.Merge(other.Histogram)
	}
}
