package domain

import (
	"encoding/hex"
	"fmt"
)

// VersionChecksum summarizes the reconciled state of one table version. It
// is derived data: it may short-circuit or validate a replay but never
// replaces one as the source of truth.
type VersionChecksum struct {
	TableSizeBytes  int64              `json:"tableSizeBytes"`
	NumFiles        int64              `json:"numFiles"`
	NumMetadata     int64              `json:"numMetadata"`
	NumProtocol     int64              `json:"numProtocol"`
	NumTransactions int64              `json:"numTransactions"`
	Histogram       *FileSizeHistogram `json:"histogramOpt,omitempty"`
	Protocol        Protocol           `json:"protocol"`
	Metadata        Metadata           `json:"metadata"`
	AllFiles        []AddFile          `json:"allFiles,omitempty"`
	Fingerprint     []byte             `json:"fingerprint,omitempty"`
}

// FingerprintHex returns the fingerprint as lowercase hex.
func (c *VersionChecksum) FingerprintHex() string {
	return hex.EncodeToString(c.Fingerprint)
}

// Diff lists the summary fields that differ between c and other, in a stable
// order. An empty result means the checksums agree.
func (c *VersionChecksum) Diff(other *VersionChecksum) []string {
	var diffs []string
	add := func(field string, a, b any) {
		diffs = append(diffs, fmt.Sprintf("%s: %v != %v", field, a, b))
	}
	if c.TableSizeBytes != other.TableSizeBytes {
		add("tableSizeBytes", c.TableSizeBytes, other.TableSizeBytes)
	}
	if c.NumFiles != other.NumFiles {
		add("numFiles", c.NumFiles, other.NumFiles)
	}
	if c.NumMetadata != other.NumMetadata {
		add("numMetadata", c.NumMetadata, other.NumMetadata)
	}
	if c.NumProtocol != other.NumProtocol {
		add("numProtocol", c.NumProtocol, other.NumProtocol)
	}
	if c.NumTransactions != other.NumTransactions {
		add("numTransactions", c.NumTransactions, other.NumTransactions)
	}
	if c.Protocol != other.Protocol {
		add("protocol", c.Protocol, other.Protocol)
	}
	if c.Metadata.ID != other.Metadata.ID {
		add("metadata.id", c.Metadata.ID, other.Metadata.ID)
	}
	if c.Histogram != nil && other.Histogram != nil && !c.Histogram.Equal(other.Histogram) {
		diffs = append(diffs, "histogram differs")
	}
	if len(c.Fingerprint) > 0 && len(other.Fingerprint) > 0 && c.FingerprintHex() != other.FingerprintHex() {
		add("fingerprint", c.FingerprintHex(), other.FingerprintHex())
	}
	return diffs
}
