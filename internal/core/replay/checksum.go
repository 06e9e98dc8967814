package replay

import (
	"encoding/binary"
	"slices"

	"golang.org/x/crypto/blake2b"

	"github.com/baumanab/delta/internal/core/domain"
)

// BuildChecksum derives the VersionChecksum of a reconciled state. It does
// no I/O and no validation. includeFiles embeds the live file list.
func BuildChecksum(s *State, includeFiles bool) *domain.VersionChecksum {
	c := &domain.VersionChecksum{
		TableSizeBytes:  s.Summary.SizeInBytes,
		NumFiles:        s.Summary.NumOfFiles,
		NumMetadata:     s.Summary.NumOfMetadata,
		NumProtocol:     s.Summary.NumOfProtocol,
		NumTransactions: s.Summary.NumOfSetTransactions,
		Histogram:       s.Summary.Histogram.Clone(),
		Protocol:        s.Protocol,
		Metadata:        s.Metadata,
		Fingerprint:     Fingerprint(s),
	}
	if includeFiles {
		c.AllFiles = slices.Clone(s.files)
	}
	return c
}

// Fingerprint is the Merkle root over one leaf per live file (in path order)
// followed by a leaf for the summary counters and the protocol.
func Fingerprint(s *State) []byte {
	leaves := make([][]byte, 0, len(s.files)+1)
	for _, f := range s.files {
		leaves = append(leaves, fileLeaf(f))
	}
	leaves = append(leaves, summaryLeaf(s))
	return merkleRoot(leaves)
}

func fileLeaf(f domain.AddFile) []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{0x00})
	h.Write([]byte(f.Path))
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(f.Size))
	binary.BigEndian.PutUint64(buf[8:], uint64(f.ModificationTime))
	h.Write(buf[:])
	return h.Sum(nil)
}

func summaryLeaf(s *State) []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{0x00})
	var buf [8]byte
	for _, v := range []int64{
		s.Summary.SizeInBytes,
		s.Summary.NumOfFiles,
		s.Summary.NumOfSetTransactions,
		int64(s.Protocol.MinReaderVersion),
		int64(s.Protocol.MinWriterVersion),
	} {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	h.Write([]byte(s.Metadata.ID))
	return h.Sum(nil)
}

// merkleRoot pairs nodes level by level, duplicating the last node of an
// odd level.
func merkleRoot(level [][]byte) []byte {
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			h, _ := blake2b.New256(nil)
			h.Write([]byte{0x01})
			h.Write(level[i])
			h.Write(right)
			next = append(next, h.Sum(nil))
		}
		level = next
	}
	return level[0]
}
