// Package txlog stores a table's action log on the local filesystem and
// serves it to the replay pipeline.
//
// Layout:
//
//	<table>/_delta_log/
//	  00000000000000000000.log             commit for version 0
//	  00000000000000000001.log             commit for version 1
//	  00000000000000000010.checkpoint.log  full state at version 10
//
// Commits and checkpoints share one encoding so both decode through the
// same reader:
//
//	[magic:8 "DSLOG\x00\x00\x01"]
//	[Frame]*
//	[checksum:32 SHA-256 of all bytes above]
//
// Frame wire format:
//
//	[Length:4][CRC32:4][Kind:1][Payload:Length-5]
//
// Where:
//   - Length = CRC32 + Kind + Payload (big-endian uint32)
//   - CRC32 covers Kind+Payload (IEEE)
//   - Kind is a domain.ActionKind
//   - Payload is the JSON of the action arm named by Kind; fields unknown
//     to that arm make the frame malformed
//
// Files are written once, to a temporary name, and linked into place so
// that a version is never overwritten.
package txlog
