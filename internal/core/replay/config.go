// Package replay reduces a log segment into the reconciled state of one
// table version.
//
// The pipeline has four stages:
//
//	Source     reads the segment, tags records with a sort key and resolves
//	           canonical file paths
//	Partition  groups records by canonical path and orders each group
//	Reduce     folds every group independently into a Fragment
//	Merge      combines fragments and validates the mandatory actions
//
// Partitions share no state until Merge, which is commutative, so they are
// reduced concurrently on a bounded worker pool.
package replay

import (
	"runtime"
	"time"
)

// DefaultNumPartitions is the partition count used when Config leaves it unset.
const DefaultNumPartitions = 50

// Config carries the tunables of one replay.
type Config struct {
	// NumPartitions is the number of path groups reduced in parallel.
	NumPartitions int

	// MinFileRetentionTimestamp drops tombstones deleted before it (epoch millis).
	MinFileRetentionTimestamp int64

	// MinSetTransactionRetentionTimestamp drops transactions last updated
	// before it (epoch millis). Zero keeps every transaction.
	MinSetTransactionRetentionTimestamp int64

	// Histogram enables the file size histogram in the summary.
	Histogram bool

	// Workers bounds concurrent reductions and file reads. Zero means GOMAXPROCS.
	Workers int
}

// DefaultConfig keeps all tombstones and transactions.
func DefaultConfig() Config {
	return Config{
		NumPartitions: DefaultNumPartitions,
		Histogram:     true,
	}
}

// ConfigFromRetention derives thresholds from retention windows ending at now.
// A zero duration disables the corresponding expiry.
func ConfigFromRetention(now time.Time, fileRetention, txnRetention time.Duration) Config {
	cfg := DefaultConfig()
	if fileRetention > 0 {
		cfg.MinFileRetentionTimestamp = now.Add(-fileRetention).UnixMilli()
	}
	if txnRetention > 0 {
		cfg.MinSetTransactionRetentionTimestamp = now.Add(-txnRetention).UnixMilli()
	}
	return cfg
}

func (c Config) applyDefaults() Config {
	if c.NumPartitions < 1 {
		c.NumPartitions = DefaultNumPartitions
	}
	if c.Workers < 1 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

func (c Config) tombstoneExpired(deletionTimestamp int64) bool {
	return deletionTimestamp < c.MinFileRetentionTimestamp
}

func (c Config) txnExpired(lastUpdated *int64) bool {
	return c.MinSetTransactionRetentionTimestamp > 0 &&
		lastUpdated != nil && *lastUpdated < c.MinSetTransactionRetentionTimestamp
}
