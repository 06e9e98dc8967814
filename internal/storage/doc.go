// Package storage joins the transaction log, checksum persistence and
// snapshot construction for a table.
//
// Components:
//
//   - Table: opens snapshots at the latest or any reachable version,
//     persists and verifies checksums, writes checkpoints, cleans the log.
//   - ChecksumStore: .crc files beside the log (FileChecksumStore) or a
//     Badger cache shared between tables (BadgerChecksumStore).
//   - KVEngine: the embedded key-value abstraction behind the cache.
package storage
