package replay

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/baumanab/delta/internal/core/domain"
)

const (
	testRoot    = "/tables/events"
	testLogPath = "/tables/events/_delta_log"
)

// memStore serves actions from memory keyed by file version.
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
	return CanonicalizePath(testRoot, raw)
}

// commit registers a delta file for version and returns its reference.
func (m *memStore) commit(version int64, actions ...domain.Action) domain.FileRef {
	ref := domain.FileRef{Path: filepath.Join(testLogPath, fmt.Sprintf("%020d.log", version)), Version: version}
	m.files[ref.Path] = actions
	return ref
}

func (m *memStore) checkpoint(version int64, actions ...domain.Action) *domain.FileRef {
	ref := domain.FileRef{Path: filepath.Join(testLogPath, fmt.Sprintf("%020d.checkpoint.log", version)), Version: version}
	m.files[ref.Path] = actions
	return &ref
}

func add(path string, size int64) domain.Action {
	return domain.Action{Add: &domain.AddFile{Path: path, Size: size, ModificationTime: 1, DataChange: true}}
}

func remove(path string, ts int64) domain.Action {
	return domain.Action{Remove: &domain.RemoveFile{Path: path, DeletionTimestamp: ts, DataChange: true}}
}

func protocol(r, w int) domain.Action {
	return domain.Action{Protocol: &domain.Protocol{MinReaderVersion: r, MinWriterVersion: w}}
}

func metadata(id string) domain.Action {
	return domain.Action{Metadata: &domain.Metadata{ID: id, Format: domain.Format{Provider: "parquet"}}}
}

func txn(app string, version int64, lastUpdated int64) domain.Action {
	return domain.Action{Txn: &domain.SetTransaction{AppID: app, Version: version, LastUpdated: &lastUpdated}}
}

// scenarioSegment: checkpoint@10 {A,B}, v11 adds C, v12 removes A at ts 500.
func scenarioSegment(m *memStore) *domain.LogSegment {
	cp := m.checkpoint(10, protocol(1, 2), metadata("tbl-1"), add("A", 100), add("B", 200))
	return &domain.LogSegment{
		LogPath:    testLogPath,
		Version:    12,
		Checkpoint: cp,
		Deltas: []domain.FileRef{
			m.commit(11, add("C", 300)),
			m.commit(12, remove("A", 500)),
		},
	}
}

func paths(files []domain.AddFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
