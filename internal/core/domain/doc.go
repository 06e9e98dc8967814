// Package domain defines the table log model shared by replay, storage and
// the outer surfaces. It contains:
//
//   - Action: the tagged union of log records (add, remove, protocol,
//     metadata, transaction)
//   - LogSegment: the checkpoint plus incremental files for one version
//   - FileSizeHistogram and VersionChecksum: derived summaries
//   - Errors: coded error sentinels and typed replay failures
//
// Types here carry no I/O and no framework coupling.
package domain
