// Package crcstore persists version checksums as ".crc" files beside the
// transaction log.
//
// File layout:
//
//	[Magic:8 "DSCRC001"]
//	[HeaderLen:4][Header JSON]
//	[BodyLen:4][Body protowire]
//	[SHA256:32]
//
// The trailer covers every preceding byte. The body encoding is shared with
// the Badger checksum cache, so both stores hold identical bytes for the
// same checksum.
package crcstore
