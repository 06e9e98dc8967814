package handler

import (
	"time"

	"github.com/baumanab/delta/internal/core/domain"
)

// Response is the standard API response envelope.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   string `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message, details string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// TableInfo is one entry of GET /tables.
type TableInfo struct {
	Name string `json:"name"`
	Root string `json:"root"`
}

// MetadataView is the table metadata without the schema and configuration,
// which have their own endpoints.
type MetadataView struct {
	ID               string   `json:"id"`
	Name             string   `json:"name,omitempty"`
	Description      string   `json:"description,omitempty"`
	Format           string   `json:"format"`
	PartitionColumns []string `json:"partition_columns,omitempty"`
	CreatedTime      *int64   `json:"created_time,omitempty"`
	SchemaString     string   `json:"schema,omitempty"`
}

// SummaryView carries the aggregate counters of a snapshot.
type SummaryView struct {
	SizeInBytes        int64                     `json:"size_in_bytes"`
	Size               string                    `json:"size"`
	NumFiles           int64                     `json:"num_files"`
	NumRemoves         int64                     `json:"num_removes"`
	NumMetadata        int64                     `json:"num_metadata"`
	NumProtocol        int64                     `json:"num_protocol"`
	NumSetTransactions int64                     `json:"num_set_transactions"`
	Histogram          *domain.FileSizeHistogram `json:"histogram,omitempty"`
}

// SnapshotResponse is the body of GET /tables/{name}/snapshot.
type SnapshotResponse struct {
	Table    string          `json:"table"`
	Version  int64           `json:"version"`
	Kind     string          `json:"kind"`
	Replayed bool            `json:"replayed"`
	Protocol domain.Protocol `json:"protocol"`
	Metadata MetadataView    `json:"metadata"`
	Summary  SummaryView     `json:"summary"`
}

// Page is a window of a sorted listing.
type Page[T any] struct {
	Version int64 `json:"version"`
	Total   int   `json:"total"`
	Offset  int   `json:"offset"`
	Limit   int   `json:"limit"`
	Items   []T   `json:"items"`
}

// TransactionsResponse is the body of GET /tables/{name}/transactions.
type TransactionsResponse struct {
	Version      int64                   `json:"version"`
	Transactions []domain.SetTransaction `json:"transactions"`
}

// PropertiesResponse is the body of GET /tables/{name}/properties.
type PropertiesResponse struct {
	Version    int64             `json:"version"`
	Properties map[string]string `json:"properties"`
}

// ChecksumView summarizes a version checksum.
type ChecksumView struct {
	Version         int64  `json:"version"`
	Fingerprint     string `json:"fingerprint"`
	TableSizeBytes  int64  `json:"table_size_bytes"`
	NumFiles        int64  `json:"num_files"`
	NumMetadata     int64  `json:"num_metadata"`
	NumProtocol     int64  `json:"num_protocol"`
	NumTransactions int64  `json:"num_transactions"`
}

// VerifyResponse is the body of POST /tables/{name}/verify.
type VerifyResponse struct {
	Version  int64         `json:"version"`
	Match    bool          `json:"match"`
	Stored   *ChecksumView `json:"stored,omitempty"`
	Computed *ChecksumView `json:"computed,omitempty"`
	Diff     []string      `json:"diff,omitempty"`
}

func checksumView(version int64, c *domain.VersionChecksum) *ChecksumView {
	if c == nil {
		return nil
	}
	return &ChecksumView{
		Version:         version,
		Fingerprint:     c.FingerprintHex(),
		TableSizeBytes:  c.TableSizeBytes,
		NumFiles:        c.NumFiles,
		NumMetadata:     c.NumMetadata,
		NumProtocol:     c.NumProtocol,
		NumTransactions: c.NumTransactions,
	}
}
