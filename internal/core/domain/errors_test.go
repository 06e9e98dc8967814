package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("DS-TEST-1000", "test message"),
			expected: "[DS-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("DS-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[DS-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("DS-TEST-1000", "message 1")
	err2 := NewDomainError("DS-TEST-1000", "message 2")
	err3 := NewDomainError("DS-TEST-1001", "message 1")

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}
}

func TestDomainError_WithCause(t *testing.T) {
	original := NewDomainError("DS-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")
	withCause := original.WithCause(cause)

	if original.Cause != nil {
		t.Error("WithCause should not modify original error")
	}
	if errors.Unwrap(withCause) != cause {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(withCause), cause)
	}
	if withCause.Code != original.Code {
		t.Errorf("Code = %q, want %q", withCause.Code, original.Code)
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrNoCommits, "DS-LOG-4042"},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrMissingVersion), "DS-LOG-4041"},
		{"typed action not found", &ActionNotFoundError{Kind: KindProtocol, Version: 3}, "DS-STATE-4040"},
		{"typed cross table", &CrossTableFileError{File: "a", LogPath: "b"}, "DS-LOG-5000"},
		{"typed protocol", &UnsupportedProtocolError{Protocol: Protocol{9, 9}}, "DS-PROTO-4260"},
		{"malformed record", &MalformedLogRecordError{File: "f", Index: 2}, "DS-LOG-4220"},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTypedErrors(t *testing.T) {
	t.Run("action not found", func(t *testing.T) {
		var err error = fmt.Errorf("replay: %w", &ActionNotFoundError{Kind: KindMetadata, Version: 12})

		var anf *ActionNotFoundError
		if !errors.As(err, &anf) {
			t.Fatal("errors.As should find *ActionNotFoundError")
		}
		if anf.Kind != KindMetadata || anf.Version != 12 {
			t.Errorf("got (%v, %d), want (metadata, 12)", anf.Kind, anf.Version)
		}
		if !errors.Is(err, ErrActionNotFound) {
			t.Error("errors.Is(err, ErrActionNotFound) = false, want true")
		}
		if got, want := anf.Error(), "metadata action not found in table version 12"; got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("malformed record keeps cause", func(t *testing.T) {
		cause := errors.New("unexpected EOF")
		err := &MalformedLogRecordError{File: "00000000000000000003.log", Index: 4, Reason: "bad frame", Cause: cause}

		if !errors.Is(err, ErrMalformedLogRecord) {
			t.Error("errors.Is(err, ErrMalformedLogRecord) = false, want true")
		}
		if !errors.Is(err, cause) {
			t.Error("errors.Is(err, cause) = false, want true")
		}
		want := "malformed log record in 00000000000000000003.log at record 4: bad frame: unexpected EOF"
		if got := err.Error(); got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})

	t.Run("unsupported protocol", func(t *testing.T) {
		err := &UnsupportedProtocolError{Protocol: Protocol{3, 7}, MaxReaderVersion: 2, MaxWriterVersion: 5}
		if !errors.Is(err, ErrUnsupportedProtocol) {
			t.Error("errors.Is(err, ErrUnsupportedProtocol) = false, want true")
		}
		if errors.Is(err, ErrCrossTableFile) {
			t.Error("errors.Is(err, ErrCrossTableFile) = true, want false")
		}
	})
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err  *DomainError
		code string
	}{
		{ErrMalformedLogRecord, "DS-LOG-4220"},
		{ErrCrossTableFile, "DS-LOG-5000"},
		{ErrMissingVersion, "DS-LOG-4041"},
		{ErrNoCommits, "DS-LOG-4042"},
		{ErrActionNotFound, "DS-STATE-4040"},
		{ErrChecksumMismatch, "DS-STATE-4090"},
		{ErrChecksumNotFound, "DS-STATE-4043"},
		{ErrUnsupportedProtocol, "DS-PROTO-4260"},
		{ErrTableNotFound, "DS-SYS-4044"},
		{ErrStorageError, "DS-SYS-5001"},
		{ErrRateLimited, "DS-SYS-4290"},
		{ErrInvalidArgument, "DS-ARG-4000"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
		})
	}
}
