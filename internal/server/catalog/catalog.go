// Package catalog is the server's registry of served tables. It caches the
// latest snapshot of each table until a newer commit appears.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/snapshot"
	"github.com/baumanab/delta/internal/server/config"
	"github.com/baumanab/delta/internal/storage"
	"github.com/baumanab/delta/internal/telemetry/metric"
	"github.com/baumanab/delta/pkg/cmap"
)

// BuildFunc opens the table described by a configuration entry.
type BuildFunc func(config.TableConfig) (*storage.Table, error)

type entry struct {
	cfg   config.TableConfig
	table *storage.Table

	mu     sync.Mutex // serializes latest snapshot loads
	latest *snapshot.Snapshot
	stat   atomic.Pointer[metric.TableStat]
}

// Catalog holds the served tables. It is safe for concurrent use.
type Catalog struct {
	tables *cmap.Map[string, *entry]
	build  BuildFunc
	logger *slog.Logger
}

// New creates an empty catalog.
func New(build BuildFunc, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		tables: cmap.New[string, *entry](),
		build:  build,
		logger: logger,
	}
}

// Sync makes the catalog serve exactly tables. Entries whose root is
// unchanged keep their cached snapshot. Tables that fail to open are
// skipped and reported in the joined error.
func (c *Catalog) Sync(tables []config.TableConfig) error {
	want := make(map[string]config.TableConfig, len(tables))
	for _, tc := range tables {
		want[tc.Name] = tc
	}

	for _, name := range c.tables.Keys() {
		if _, ok := want[name]; !ok {
			c.tables.Delete(name)
			c.logger.Info("table removed", "table", name)
		}
	}

	var errs []error
	for _, tc := range tables {
		if cur, ok := c.tables.Get(tc.Name); ok && cur.cfg == tc {
			continue
		}
		t, err := c.build(tc)
		if err != nil {
			c.logger.Error("table open failed", "table", tc.Name, "error", err)
			errs = append(errs, fmt.Errorf("table %s: %w", tc.Name, err))
			continue
		}
		c.tables.Set(tc.Name, &entry{cfg: tc, table: t})
		c.logger.Info("table registered", "table", tc.Name, "root", t.Root())
	}
	return errors.Join(errs...)
}

// Names returns the served table names in order.
func (c *Catalog) Names() []string {
	names := c.tables.Keys()
	slices.Sort(names)
	return names
}

// Table returns the named table or domain.ErrTableNotFound.
func (c *Catalog) Table(name string) (*storage.Table, error) {
	e, err := c.entry(name)
	if err != nil {
		return nil, err
	}
	return e.table, nil
}

func (c *Catalog) entry(name string) (*entry, error) {
	e, ok := c.tables.Get(name)
	if !ok {
		return nil, domain.ErrTableNotFound.WithDetails(name)
	}
	return e, nil
}

// Snapshot opens the named table at version, or at its latest version
// when version is negative. Latest snapshots are cached per table and
// reused while no newer commit exists and their replay has not failed.
func (c *Catalog) Snapshot(ctx context.Context, name string, version int64) (*snapshot.Snapshot, error) {
	e, err := c.entry(name)
	if err != nil {
		return nil, err
	}
	if version >= 0 {
		return e.table.Open(ctx, version)
	}
	return c.latest(ctx, e)
}

func (c *Catalog) latest(ctx context.Context, e *entry) (*snapshot.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	listing, err := e.table.Log().List(ctx)
	if err != nil {
		return nil, err
	}
	if e.latest != nil && e.latest.Version() == listing.LatestVersion() {
		if e.latest.ReplayState() != snapshot.Failed {
			return e.latest, nil
		}
		c.logger.Warn("reopening failed snapshot", "table", e.cfg.Name, "version", e.latest.Version())
	}

	snap, err := e.table.Latest(ctx)
	if err != nil {
		return nil, err
	}
	e.latest = snap
	e.stat.Store(statOf(ctx, e.cfg.Name, snap))
	return snap, nil
}

func statOf(ctx context.Context, name string, snap *snapshot.Snapshot) *metric.TableStat {
	st := &metric.TableStat{Name: name, Version: snap.Version()}
	if sum, err := snap.Summary(ctx); err == nil {
		st.LiveFiles = sum.NumOfFiles
		st.TableBytes = sum.SizeInBytes
	}
	return st
}

// Invalidate drops the cached latest snapshot of name.
func (c *Catalog) Invalidate(name string) {
	if e, ok := c.tables.Get(name); ok {
		e.mu.Lock()
		e.latest = nil
		e.mu.Unlock()
	}
}

// TableStats implements metric.TableStatsSource for tables whose latest
// snapshot has been loaded.
func (c *Catalog) TableStats() []metric.TableStat {
	var out []metric.TableStat
	for _, e := range c.tables.All() {
		if st := e.stat.Load(); st != nil {
			out = append(out, *st)
		}
	}
	slices.SortFunc(out, func(a, b metric.TableStat) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
