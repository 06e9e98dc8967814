package txlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultRetainVersions is how many versions before the latest stay
// reconstructible after cleaning.
const DefaultRetainVersions = 10

// Cleaner removes log files no longer needed to reconstruct recent versions.
type Cleaner struct {
	store  *Store
	retain int64
}

// CleanerOption configures the Cleaner.
type CleanerOption func(*Cleaner)

// WithRetainVersions sets how many versions before the latest must remain
// reconstructible.
func WithRetainVersions(n int64) CleanerOption {
	return func(c *Cleaner) {
		if n >= 0 {
			c.retain = n
		}
	}
}

// NewCleaner creates a Cleaner for store.
func NewCleaner(store *Store, opts ...CleanerOption) *Cleaner {
	c := &Cleaner{store: store, retain: DefaultRetainVersions}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean picks the newest checkpoint at or below latest-retain and deletes
// every commit up to it and every older checkpoint. Versions from that
// checkpoint on remain readable. It returns the removed file names.
func (c *Cleaner) Clean(ctx context.Context) ([]string, error) {
	l, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	horizon := l.LatestVersion() - c.retain

	boundary := int64(-1)
	for _, cp := range l.Checkpoints {
		if cp.Version <= horizon {
			boundary = cp.Version
		}
	}
	if boundary < 0 {
		return nil, nil
	}

	var toDelete []string
	for _, f := range l.Commits {
		if f.Version <= boundary {
			toDelete = append(toDelete, f.Path)
		}
	}
	for _, f := range l.Checkpoints {
		if f.Version < boundary {
			toDelete = append(toDelete, f.Path)
		}
	}

	var (
		removed []string
		errs    []error
	)
	for _, path := range toDelete {
		if err := os.Remove(path); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		removed = append(removed, filepath.Base(path))
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("txlog: failed to delete %d files: %w", len(errs), errors.Join(errs...))
	}

	c.store.logger.Info("log cleaned", "boundary", boundary, "removed", len(removed))
	return removed, nil
}
