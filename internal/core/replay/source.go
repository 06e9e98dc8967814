package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/baumanab/delta/internal/core/domain"
)

// LogStore decodes log files and resolves file paths for one table.
type LogStore interface {
	// ReadFile returns the actions of one log file in record order.
	ReadFile(ctx context.Context, ref domain.FileRef) ([]domain.Action, error)

	// CanonicalizePath maps equivalent spellings of a data file path to one key.
	CanonicalizePath(raw string) (string, error)
}

// Record is one action tagged for grouping and ordering.
type Record struct {
	Action domain.Action

	// SortKey is (file ordinal << 32 | record index): checkpoint records sort
	// first, then incremental files by version, then position in file.
	SortKey uint64

	// Path is the canonical add/remove path, "" for path-less actions. The
	// action's own Path field still holds the raw value.
	Path string
}

// SortKeyOf builds the sort key of the index-th record in the ordinal-th file.
func SortKeyOf(ordinal, index int) uint64 {
	return uint64(ordinal)<<32 | uint64(uint32(index))
}

// Source turns a log segment into a tagged record stream.
type Source struct {
	store   LogStore
	workers int
	logger  *slog.Logger
}

// NewSource creates a Source reading through store with up to workers
// concurrent file reads.
func NewSource(store LogStore, workers int, logger *slog.Logger) *Source {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{store: store, workers: workers, logger: logger}
}

// Stream reads every file of seg and returns its records in replay order.
// Files are fetched concurrently but kept in segment order.
func (s *Source) Stream(ctx context.Context, seg *domain.LogSegment) ([]Record, error) {
	files := seg.Files()
	batches := make([][]domain.Action, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, ref := range files {
		g.Go(func() error {
			actions, err := s.store.ReadFile(gctx, ref)
			if err != nil {
				return wrapReadError(ref, err)
			}
			batches[i] = actions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, b := range batches {
		total += len(b)
	}
	records := make([]Record, 0, total)
	canonical := make(map[string]string)

	for ordinal, batch := range batches {
		for index, action := range batch {
			if err := action.Validate(); err != nil {
				return nil, &domain.MalformedLogRecordError{
					File:   filepath.Base(files[ordinal].Path),
					Index:  index,
					Reason: invalidReason(err),
				}
			}

			rec := Record{Action: action, SortKey: SortKeyOf(ordinal, index)}
			if raw := action.Path(); raw != "" {
				p, ok := canonical[raw]
				if !ok {
					var err error
					if p, err = s.store.CanonicalizePath(raw); err != nil {
						return nil, &domain.MalformedLogRecordError{
							File:   filepath.Base(files[ordinal].Path),
							Index:  index,
							Reason: "unresolvable path",
							Cause:  err,
						}
					}
					canonical[raw] = p
				}
				rec.Path = p
			}
			records = append(records, rec)
		}
	}

	s.logger.Debug("log segment streamed",
		"version", seg.Version,
		"checkpoint", seg.CheckpointVersion(),
		"files", len(files),
		"records", len(records))
	return records, nil
}

func wrapReadError(ref domain.FileRef, err error) error {
	var malformed *domain.MalformedLogRecordError
	if errors.As(err, &malformed) {
		return err
	}
	if errors.Is(err, domain.ErrMalformedLogRecord) {
		return &domain.MalformedLogRecordError{File: filepath.Base(ref.Path), Index: -1, Cause: err}
	}
	return fmt.Errorf("replay: read %s: %w", filepath.Base(ref.Path), err)
}

func invalidReason(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) && de.Details != "" {
		return de.Details
	}
	return err.Error()
}
