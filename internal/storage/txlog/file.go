package txlog

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/baumanab/delta/internal/core/domain"
)

// File format constants.
const (
	CommitExtension     = ".log"
	CheckpointExtension = ".checkpoint.log"
	MagicBytes          = "DSLOG\x00\x00\x01"
	MagicBytesSize      = 8
	ChecksumSize        = 32
	DefaultFilePerm     = 0644
	DefaultDirPerm      = 0755

	// maxFrameSize bounds a single frame to catch corrupted length fields.
	maxFrameSize = 64 << 20
)

// CommitFilename returns the file name of the commit for version.
func CommitFilename(version int64) string {
	return fmt.Sprintf("%020d%s", version, CommitExtension)
}

// CheckpointFilename returns the file name of the checkpoint at version.
func CheckpointFilename(version int64) string {
	return fmt.Sprintf("%020d%s", version, CheckpointExtension)
}

// parseFilename recognizes commit and checkpoint names.
func parseFilename(name string) (version int64, checkpoint bool, ok bool) {
	switch {
	case strings.HasSuffix(name, CheckpointExtension):
		name, checkpoint = strings.TrimSuffix(name, CheckpointExtension), true
	case strings.HasSuffix(name, CommitExtension):
		name = strings.TrimSuffix(name, CommitExtension)
	default:
		return 0, false, false
	}
	if len(name) != 20 {
		return 0, false, false
	}
	v, err := strconv.ParseInt(name, 10, 64)
	if err != nil || v < 0 {
		return 0, false, false
	}
	return v, checkpoint, true
}

// writeFile encodes actions and publishes them at path. It fails with
// os.ErrExist when path is already taken.
func writeFile(path string, actions []domain.Action) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
		return fmt.Errorf("txlog: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("txlog: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := sha256.New()
	w := bufio.NewWriter(io.MultiWriter(tmp, h))
	if _, err := w.WriteString(MagicBytes); err != nil {
		tmp.Close()
		return fmt.Errorf("txlog: write magic: %w", err)
	}
	for i, a := range actions {
		frame, err := encodeFrame(a)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("txlog: encode action %d: %w", i, err)
		}
		if _, err := w.Write(frame); err != nil {
			tmp.Close()
			return fmt.Errorf("txlog: write action %d: %w", i, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("txlog: flush: %w", err)
	}
	if _, err := tmp.Write(h.Sum(nil)); err != nil {
		tmp.Close()
		return fmt.Errorf("txlog: write checksum: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("txlog: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("txlog: close: %w", err)
	}
	if err := os.Chmod(tmpPath, DefaultFilePerm); err != nil {
		return fmt.Errorf("txlog: chmod: %w", err)
	}

	// Link instead of rename so an existing version is never replaced.
	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("txlog: %s: %w", filepath.Base(path), os.ErrExist)
		}
		return fmt.Errorf("txlog: publish: %w", err)
	}
	return nil
}

// readFile decodes every action of one log file. Any structural problem is
// reported as *domain.MalformedLogRecordError.
func readFile(path string) ([]domain.Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	malformed := func(index int, reason string, cause error) error {
		return &domain.MalformedLogRecordError{File: name, Index: index, Reason: reason, Cause: cause}
	}

	if len(data) < MagicBytesSize+ChecksumSize {
		return nil, malformed(-1, "file truncated", nil)
	}
	body, trailer := data[:len(data)-ChecksumSize], data[len(data)-ChecksumSize:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return nil, malformed(-1, "file checksum mismatch", nil)
	}
	if string(body[:MagicBytesSize]) != MagicBytes {
		return nil, malformed(-1, "invalid magic bytes", nil)
	}

	var actions []domain.Action
	rest := body[MagicBytesSize:]
	for index := 0; len(rest) > 0; index++ {
		if len(rest) < 4 {
			return nil, malformed(index, "truncated frame length", nil)
		}
		length := binary.BigEndian.Uint32(rest[:4])
		if length < frameHeaderSize || length > maxFrameSize || int(length) > len(rest)-4 {
			return nil, malformed(index, fmt.Sprintf("invalid frame length %d", length), nil)
		}
		a, err := decodeFrame(rest[4 : 4+length])
		if err != nil {
			return nil, malformed(index, "", err)
		}
		actions = append(actions, a)
		rest = rest[4+length:]
	}
	return actions, nil
}
