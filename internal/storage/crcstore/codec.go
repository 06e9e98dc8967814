package crcstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/baumanab/delta/internal/core/domain"
)

// Field numbers of the checksum body. Never renumber.
const (
	fieldTableSize       protowire.Number = 1
	fieldNumFiles        protowire.Number = 2
	fieldNumMetadata     protowire.Number = 3
	fieldNumProtocol     protowire.Number = 4
	fieldNumTransactions protowire.Number = 5
	fieldHistogram       protowire.Number = 6
	fieldProtocol        protowire.Number = 7
	fieldMetadata        protowire.Number = 8 // JSON
	fieldAddFile         protowire.Number = 9 // JSON, repeated
	fieldFingerprint     protowire.Number = 10

	fieldBoundaries protowire.Number = 1
	fieldCounts     protowire.Number = 2
	fieldTotals     protowire.Number = 3

	fieldMinReader protowire.Number = 1
	fieldMinWriter protowire.Number = 2
)

var errTruncated = errors.New("crcstore: truncated body")

// Marshal encodes c as a protobuf wire message.
func Marshal(c *domain.VersionChecksum) ([]byte, error) {
	var b []byte
	b = appendInt(b, fieldTableSize, c.TableSizeBytes)
	b = appendInt(b, fieldNumFiles, c.NumFiles)
	b = appendInt(b, fieldNumMetadata, c.NumMetadata)
	b = appendInt(b, fieldNumProtocol, c.NumProtocol)
	b = appendInt(b, fieldNumTransactions, c.NumTransactions)

	if h := c.Histogram; h != nil {
		var hb []byte
		hb = appendPacked(hb, fieldBoundaries, h.SortedBinBoundaries)
		hb = appendPacked(hb, fieldCounts, h.FileCounts)
		hb = appendPacked(hb, fieldTotals, h.TotalBytes)
		b = protowire.AppendTag(b, fieldHistogram, protowire.BytesType)
		b = protowire.AppendBytes(b, hb)
	}

	var pb []byte
	pb = appendInt(pb, fieldMinReader, int64(c.Protocol.MinReaderVersion))
	pb = appendInt(pb, fieldMinWriter, int64(c.Protocol.MinWriterVersion))
	b = protowire.AppendTag(b, fieldProtocol, protowire.BytesType)
	b = protowire.AppendBytes(b, pb)

	md, err := json.Marshal(c.Metadata)
	if err != nil {
		return nil, fmt.Errorf("crcstore: marshal metadata: %w", err)
	}
	b = protowire.AppendTag(b, fieldMetadata, protowire.BytesType)
	b = protowire.AppendBytes(b, md)

	for i := range c.AllFiles {
		fb, err := json.Marshal(&c.AllFiles[i])
		if err != nil {
			return nil, fmt.Errorf("crcstore: marshal file %d: %w", i, err)
		}
		b = protowire.AppendTag(b, fieldAddFile, protowire.BytesType)
		b = protowire.AppendBytes(b, fb)
	}

	if len(c.Fingerprint) > 0 {
		b = protowire.AppendTag(b, fieldFingerprint, protowire.BytesType)
		b = protowire.AppendBytes(b, c.Fingerprint)
	}
	return b, nil
}

// Unmarshal decodes a body written by Marshal. Unknown fields are skipped.
func Unmarshal(b []byte) (*domain.VersionChecksum, error) {
	c := &domain.VersionChecksum{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) error {
		switch num {
		case fieldTableSize:
			c.TableSizeBytes = int64(v)
		case fieldNumFiles:
			c.NumFiles = int64(v)
		case fieldNumMetadata:
			c.NumMetadata = int64(v)
		case fieldNumProtocol:
			c.NumProtocol = int64(v)
		case fieldNumTransactions:
			c.NumTransactions = int64(v)
		case fieldHistogram:
			h, err := unmarshalHistogram(raw)
			if err != nil {
				return err
			}
			c.Histogram = h
		case fieldProtocol:
			return eachField(raw, func(num protowire.Number, _ protowire.Type, v uint64, _ []byte) error {
				switch num {
				case fieldMinReader:
					c.Protocol.MinReaderVersion = int(v)
				case fieldMinWriter:
					c.Protocol.MinWriterVersion = int(v)
				}
				return nil
			})
		case fieldMetadata:
			if err := json.Unmarshal(raw, &c.Metadata); err != nil {
				return fmt.Errorf("crcstore: metadata: %w", err)
			}
		case fieldAddFile:
			var f domain.AddFile
			if err := json.Unmarshal(raw, &f); err != nil {
				return fmt.Errorf("crcstore: file %d: %w", len(c.AllFiles), err)
			}
			c.AllFiles = append(c.AllFiles, f)
		case fieldFingerprint:
			c.Fingerprint = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func unmarshalHistogram(b []byte) (*domain.FileSizeHistogram, error) {
	h := &domain.FileSizeHistogram{}
	err := eachField(b, func(num protowire.Number, typ protowire.Type, _ uint64, raw []byte) error {
		if typ != protowire.BytesType {
			return nil
		}
		vals, err := consumePacked(raw)
		if err != nil {
			return err
		}
		switch num {
		case fieldBoundaries:
			h.SortedBinBoundaries = vals
		case fieldCounts:
			h.FileCounts = vals
		case fieldTotals:
			h.TotalBytes = vals
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(h.FileCounts) != len(h.SortedBinBoundaries) || len(h.TotalBytes) != len(h.SortedBinBoundaries) {
		return nil, errors.New("crcstore: histogram arrays differ in length")
	}
	return h, nil
}

// eachField walks the top-level fields of b. Varint fields pass their value
// in v, length-delimited ones their payload in raw.
func eachField(b []byte, fn func(num protowire.Number, typ protowire.Type, v uint64, raw []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("crcstore: tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		var (
			v   uint64
			raw []byte
		)
		switch typ {
		case protowire.VarintType:
			v, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			raw, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("crcstore: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(num, typ, v, raw); err != nil {
			return err
		}
	}
	return nil
}

func appendInt(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendPacked(b []byte, num protowire.Number, vals []int64) []byte {
	var packed []byte
	for _, v := range vals {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func consumePacked(b []byte) ([]int64, error) {
	vals := []int64{}
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, errTruncated
		}
		vals = append(vals, int64(v))
		b = b[n:]
	}
	return vals, nil
}
