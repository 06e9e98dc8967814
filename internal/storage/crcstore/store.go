package crcstore

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/baumanab/delta/internal/core/domain"
)

// File format constants.
const (
	Extension      = ".crc"
	MagicBytes     = "DSCRC001"
	checksumSize   = 32
	headerVersion  = 1
	maxSectionSize = 256 << 20

	// DefaultRetainCount is how many checksum files Prune keeps.
	DefaultRetainCount = 20
)

var (
	errInvalidMagic    = errors.New("crcstore: invalid magic bytes")
	errTrailerMismatch = errors.New("crcstore: sha256 trailer mismatch")
	errSectionTooLarge = errors.New("crcstore: section length out of range")
	errVersionMismatch = errors.New("crcstore: header version does not match file name")
)

type fileHeader struct {
	Format      int    `json:"format"`
	Version     int64  `json:"version"`
	CreatedAt   int64  `json:"created_at"`
	NumFiles    int64  `json:"num_files"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Info describes one stored checksum file.
type Info struct {
	Version   int64  `json:"version"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	CreatedAt int64  `json:"created_at"`
	Digest    string `json:"digest"`
}

// Store reads and writes checksum files in one directory, normally the
// table's log directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New returns a store rooted at dir. The directory is created on first Save.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("crcstore: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Filename returns the checksum file name for version.
func Filename(version int64) string {
	return fmt.Sprintf("%020d%s", version, Extension)
}

func parseFilename(name string) (int64, bool) {
	base, ok := strings.CutSuffix(name, Extension)
	if !ok || len(base) != 20 {
		return 0, false
	}
	v, err := strconv.ParseInt(base, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Save writes the checksum of version, replacing any previous one.
func (s *Store) Save(ctx context.Context, version int64, c *domain.VersionChecksum) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := Marshal(c)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	hdr, err := json.Marshal(fileHeader{
		Format:      headerVersion,
		Version:     version,
		CreatedAt:   now.UnixMilli(),
		NumFiles:    c.NumFiles,
		Fingerprint: c.FingerprintHex(),
	})
	if err != nil {
		return nil, fmt.Errorf("crcstore: marshal header: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("crcstore: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".crc-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("crcstore: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hash := sha256.New()
	w := bufio.NewWriter(io.MultiWriter(tmp, hash))
	w.WriteString(MagicBytes)
	writeSection(w, hdr)
	writeSection(w, body)
	if err := w.Flush(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("crcstore: write: %w", err)
	}
	sum := hash.Sum(nil)
	if _, err := tmp.Write(sum); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("crcstore: write trailer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("crcstore: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("crcstore: close: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return nil, fmt.Errorf("crcstore: chmod: %w", err)
	}

	finalPath := filepath.Join(s.dir, Filename(version))
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, fmt.Errorf("crcstore: rename: %w", err)
	}

	info := &Info{
		Version:   version,
		Path:      finalPath,
		Size:      int64(len(MagicBytes)+8+len(hdr)+len(body)) + checksumSize,
		CreatedAt: now.UnixMilli(),
		Digest:    fmt.Sprintf("%x", sum),
	}
	s.logger.Info("checksum saved", "version", version, "size_bytes", info.Size)
	return info, nil
}

func writeSection(w *bufio.Writer, data []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(data)))
	w.Write(n[:])
	w.Write(data)
}

// Load reads the checksum of version. A missing file yields
// domain.ErrChecksumNotFound; a damaged one a domain.ErrStorageError.
func (s *Store) Load(ctx context.Context, version int64) (*domain.VersionChecksum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, _, err := s.loadFile(filepath.Join(s.dir, Filename(version)), version)
	return c, err
}

func (s *Store) loadFile(path string, version int64) (*domain.VersionChecksum, *Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, domain.ErrChecksumNotFound.WithDetails(fmt.Sprintf("version %d", version))
		}
		return nil, nil, domain.ErrStorageError.WithCause(err)
	}
	c, hdr, err := decodeFile(data)
	if err == nil && hdr.Version != version {
		err = errVersionMismatch
	}
	if err != nil {
		return nil, nil, domain.ErrStorageError.
			WithDetails(fmt.Sprintf("damaged checksum file %s", filepath.Base(path))).
			WithCause(err)
	}
	return c, &Info{
		Version:   version,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: hdr.CreatedAt,
		Digest:    fmt.Sprintf("%x", data[len(data)-checksumSize:]),
	}, nil
}

func decodeFile(data []byte) (*domain.VersionChecksum, *fileHeader, error) {
	if len(data) < len(MagicBytes)+checksumSize {
		return nil, nil, errTrailerMismatch
	}
	body, trailer := data[:len(data)-checksumSize], data[len(data)-checksumSize:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return nil, nil, errTrailerMismatch
	}
	if string(body[:len(MagicBytes)]) != MagicBytes {
		return nil, nil, errInvalidMagic
	}
	rest := body[len(MagicBytes):]

	hdrJSON, rest, err := readSection(rest)
	if err != nil {
		return nil, nil, err
	}
	var hdr fileHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("crcstore: unmarshal header: %w", err)
	}
	if hdr.Format != headerVersion {
		return nil, nil, fmt.Errorf("crcstore: unsupported format %d", hdr.Format)
	}

	payload, _, err := readSection(rest)
	if err != nil {
		return nil, nil, err
	}
	c, err := Unmarshal(payload)
	if err != nil {
		return nil, nil, err
	}
	return c, &hdr, nil
}

func readSection(b []byte) (section, rest []byte, err error) {
	if len(b) < 4 {
		return nil, nil, errSectionTooLarge
	}
	n := binary.BigEndian.Uint32(b[:4])
	if n > maxSectionSize || int(n) > len(b)-4 {
		return nil, nil, errSectionTooLarge
	}
	return b[4 : 4+n], b[4+n:], nil
}

// List returns the stored checksum files ordered by version.
func (s *Store) List(ctx context.Context) ([]*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}
	var infos []*Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		v, ok := parseFilename(e.Name())
		if !ok {
			continue
		}
		st, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, &Info{
			Version:   v,
			Path:      filepath.Join(s.dir, e.Name()),
			Size:      st.Size(),
			CreatedAt: st.ModTime().UnixMilli(),
		})
	}
	slices.SortFunc(infos, func(a, b *Info) int { return cmp.Compare(a.Version, b.Version) })
	return infos, nil
}

// Latest returns the newest readable checksum at or below maxVersion; a
// negative maxVersion means no bound. Damaged files are skipped.
func (s *Store) Latest(ctx context.Context, maxVersion int64) (*domain.VersionChecksum, *Info, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	for i := len(infos) - 1; i >= 0; i-- {
		if maxVersion >= 0 && infos[i].Version > maxVersion {
			continue
		}
		c, info, err := s.loadFile(infos[i].Path, infos[i].Version)
		if err == nil {
			return c, info, nil
		}
		if errors.Is(err, domain.ErrStorageError) {
			s.logger.Warn("skipping damaged checksum", "version", infos[i].Version, "error", err)
			continue
		}
		return nil, nil, err
	}
	return nil, nil, domain.ErrChecksumNotFound.WithDetails("no checksum files")
}

// Prune deletes all but the newest keep checksum files and returns the
// removed versions.
func (s *Store) Prune(ctx context.Context, keep int) ([]int64, error) {
	if keep <= 0 {
		keep = DefaultRetainCount
	}
	infos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(infos) <= keep {
		return nil, nil
	}
	var (
		removed []int64
		errs    []error
	)
	for _, info := range infos[:len(infos)-keep] {
		if err := os.Remove(info.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, info.Version)
	}
	if len(removed) > 0 {
		s.logger.Info("checksums pruned", "removed", len(removed), "kept", keep)
	}
	return removed, errors.Join(errs...)
}
