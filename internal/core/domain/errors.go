// Package domain defines the table log model: actions, log segments,
// checksums and the error taxonomy shared by replay and storage.
package domain

import (
	"errors"
	"fmt"
)

// DomainError is an error carrying a stable code of the form
// "DS-<AREA>-<NNNN>". The trailing digits follow HTTP status semantics.
type DomainError struct {
	Code    string // e.g. "DS-LOG-4220"
	Message string
	Details string
	Cause   error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Log Errors (LOG)
// ============================================================================

var (
	// ErrMalformedLogRecord indicates a record that cannot be decoded or whose
	// payload disagrees with its declared action kind.
	ErrMalformedLogRecord = NewDomainError("DS-LOG-4220", "malformed log record")

	// ErrCrossTableFile indicates a segment file outside the table's log directory.
	ErrCrossTableFile = NewDomainError("DS-LOG-5000", "log file belongs to another table")

	// ErrMissingVersion indicates a gap in the incremental log files.
	ErrMissingVersion = NewDomainError("DS-LOG-4041", "log version missing")

	// ErrNoCommits indicates a table log directory without any commit.
	ErrNoCommits = NewDomainError("DS-LOG-4042", "table has no commits")
)

// ============================================================================
// State Errors (STATE)
// ============================================================================

var (
	// ErrActionNotFound indicates a mandatory singleton action is absent.
	ErrActionNotFound = NewDomainError("DS-STATE-4040", "mandatory action not found")

	// ErrChecksumMismatch indicates a stored checksum disagrees with replay.
	ErrChecksumMismatch = NewDomainError("DS-STATE-4090", "checksum mismatch")

	// ErrChecksumNotFound indicates no checksum is stored for a version.
	ErrChecksumNotFound = NewDomainError("DS-STATE-4043", "checksum not found")
)

// ============================================================================
// Protocol Errors (PROTO)
// ============================================================================

var (
	// ErrUnsupportedProtocol indicates the table requires a newer reader or writer.
	ErrUnsupportedProtocol = NewDomainError("DS-PROTO-4260", "unsupported table protocol")
)

// ============================================================================
// System and Argument Errors
// ============================================================================

var (
	// ErrTableNotFound indicates an unknown table name.
	ErrTableNotFound = NewDomainError("DS-SYS-4044", "table not found")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("DS-SYS-5001", "storage error")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("DS-SYS-4290", "too many requests")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("DS-ARG-4000", "invalid argument")
)

// MalformedLogRecordError locates an undecodable record.
type MalformedLogRecordError struct {
	File   string
	Index  int // record position within File, -1 when unknown
	Reason string
	Cause  error
}

func (e *MalformedLogRecordError) Error() string {
	msg := fmt.Sprintf("malformed log record in %s", e.File)
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s at record %d", msg, e.Index)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the decode cause.
func (e *MalformedLogRecordError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrMalformedLogRecord}
	}
	return []error{ErrMalformedLogRecord, e.Cause}
}

// ActionNotFoundError reports a missing protocol or metadata action after
// full reduction of a version.
type ActionNotFoundError struct {
	Kind    ActionKind
	Version int64
}

func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("%s action not found in table version %d", e.Kind, e.Version)
}

func (e *ActionNotFoundError) Unwrap() error { return ErrActionNotFound }

// CrossTableFileError reports a segment file whose parent directory is not
// the table's log directory.
type CrossTableFileError struct {
	File    string
	LogPath string
}

func (e *CrossTableFileError) Error() string {
	return fmt.Sprintf("file %s does not belong to log directory %s", e.File, e.LogPath)
}

func (e *CrossTableFileError) Unwrap() error { return ErrCrossTableFile }

// UnsupportedProtocolError reports a table protocol outside the supported range.
type UnsupportedProtocolError struct {
	Protocol         Protocol
	MaxReaderVersion int
	MaxWriterVersion int
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("table requires reader %d / writer %d, supported up to reader %d / writer %d",
		e.Protocol.MinReaderVersion, e.Protocol.MinWriterVersion, e.MaxReaderVersion, e.MaxWriterVersion)
}

func (e *UnsupportedProtocolError) Unwrap() error { return ErrUnsupportedProtocol }
