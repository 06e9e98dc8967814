package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/storage/crcstore"
)

// ChecksumStore persists version checksums of one table.
type ChecksumStore interface {
	// Save stores c as the checksum of version, replacing any previous one.
	Save(ctx context.Context, version int64, c *domain.VersionChecksum) error

	// Load returns domain.ErrChecksumNotFound when version has none.
	Load(ctx context.Context, version int64) (*domain.VersionChecksum, error)
}

// Pruner is implemented by checksum stores that can drop old versions.
type Pruner interface {
	// Prune keeps the newest keep checksums and reports how many it removed.
	Prune(ctx context.Context, keep int) (int, error)
}

// FileChecksumStore keeps checksums as .crc files in the log directory.
type FileChecksumStore struct {
	files *crcstore.Store
}

// NewFileChecksumStore wraps a crcstore.Store.
func NewFileChecksumStore(files *crcstore.Store) *FileChecksumStore {
	return &FileChecksumStore{files: files}
}

// Save implements ChecksumStore.
func (s *FileChecksumStore) Save(ctx context.Context, version int64, c *domain.VersionChecksum) error {
	_, err := s.files.Save(ctx, version, c)
	return err
}

// Load implements ChecksumStore.
func (s *FileChecksumStore) Load(ctx context.Context, version int64) (*domain.VersionChecksum, error) {
	return s.files.Load(ctx, version)
}

// Prune keeps the newest keep checksum files.
func (s *FileChecksumStore) Prune(ctx context.Context, keep int) (int, error) {
	removed, err := s.files.Prune(ctx, keep)
	return len(removed), err
}

// BadgerChecksumStore caches checksums of one table in a KVEngine under
// "crc/<table>/<version>". Values use the crcstore body encoding.
type BadgerChecksumStore struct {
	kv     KVEngine
	prefix []byte
}

// NewBadgerChecksumStore scopes kv to table. Several tables may share kv.
func NewBadgerChecksumStore(kv KVEngine, table string) *BadgerChecksumStore {
	return &BadgerChecksumStore{kv: kv, prefix: []byte("crc/" + table + "/")}
}

func (s *BadgerChecksumStore) key(version int64) []byte {
	return fmt.Appendf(append([]byte(nil), s.prefix...), "%020d", version)
}

func (s *BadgerChecksumStore) versionOf(key []byte) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimPrefix(string(key), string(s.prefix)), 10, 64)
	return v, err == nil
}

// Save implements ChecksumStore.
func (s *BadgerChecksumStore) Save(ctx context.Context, version int64, c *domain.VersionChecksum) error {
	body, err := crcstore.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key(version), body); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Load implements ChecksumStore.
func (s *BadgerChecksumStore) Load(ctx context.Context, version int64) (*domain.VersionChecksum, error) {
	body, err := s.kv.Get(ctx, s.key(version))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrChecksumNotFound.WithDetails(fmt.Sprintf("version %d", version))
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}
	c, err := crcstore.Unmarshal(body)
	if err != nil {
		return nil, domain.ErrStorageError.WithDetails("damaged cached checksum").WithCause(err)
	}
	return c, nil
}

// Versions lists cached versions in ascending order.
func (s *BadgerChecksumStore) Versions(ctx context.Context) ([]int64, error) {
	var versions []int64
	err := s.kv.Scan(ctx, s.prefix, func(key, _ []byte) bool {
		if v, ok := s.versionOf(key); ok {
			versions = append(versions, v)
		}
		return true
	})
	return versions, err
}

// Prune keeps the newest keep cached checksums.
func (s *BadgerChecksumStore) Prune(ctx context.Context, keep int) (int, error) {
	versions, err := s.Versions(ctx)
	if err != nil {
		return 0, err
	}
	if keep <= 0 || len(versions) <= keep {
		return 0, nil
	}
	cutoff := versions[len(versions)-keep]
	return s.kv.DeletePrefix(ctx, s.prefix, func(key []byte) bool {
		v, ok := s.versionOf(key)
		return ok && v >= cutoff
	})
}
