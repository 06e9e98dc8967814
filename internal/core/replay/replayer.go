package replay

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baumanab/delta/internal/core/domain"
)

// Stats describes one completed pipeline run.
type Stats struct {
	Files      int
	Records    int
	Partitions int
	Elapsed    time.Duration
}

// Observer is notified around each pipeline run.
type Observer interface {
	ReplayFinished(seg *domain.LogSegment, stats Stats, err error)
}

// Replayer drives the source, partition, reduce and merge stages.
type Replayer struct {
	source   *Source
	cfg      Config
	logger   *slog.Logger
	observer Observer
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithLogger sets the replay logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Replayer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers an observer for finished runs.
func WithObserver(o Observer) Option {
	return func(r *Replayer) {
		r.observer = o
	}
}

// NewReplayer creates a Replayer reading from store.
func NewReplayer(store LogStore, cfg Config, opts ...Option) *Replayer {
	r := &Replayer{
		cfg:    cfg.applyDefaults(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.source = NewSource(store, r.cfg.Workers, r.logger)
	return r
}

// Config returns the effective configuration.
func (r *Replayer) Config() Config { return r.cfg }

// Run reconstructs the state of seg.Version. Any failure aborts the whole
// run; no partial state is returned.
func (r *Replayer) Run(ctx context.Context, seg *domain.LogSegment) (state *State, err error) {
	start := time.Now()
	stats := Stats{Files: len(seg.Files()), Partitions: r.cfg.NumPartitions}
	defer func() {
		stats.Elapsed = time.Since(start)
		if r.observer != nil {
			r.observer.ReplayFinished(seg, stats, err)
		}
	}()

	records, err := r.source.Stream(ctx, seg)
	if err != nil {
		r.logger.Error("log segment read failed", "version", seg.Version, "error", err)
		return nil, err
	}
	stats.Records = len(records)

	parts := Partition(records, r.cfg.NumPartitions)
	fragments := make([]*Fragment, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, part := range parts {
		if len(part) == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fragments[i] = Reduce(part, r.cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	state, err = Aggregate(seg.Version, fragments)
	if err != nil {
		r.logger.Error("state validation failed", "version", seg.Version, "error", err)
		return nil, err
	}

	r.logger.Info("log replay completed",
		"version", seg.Version,
		"records", stats.Records,
		"files", state.Summary.NumOfFiles,
		"tombstones", state.Summary.NumOfRemoves,
		"elapsed", time.Since(start))
	return state, nil
}
