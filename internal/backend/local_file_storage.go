package backend

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docstore/pkg/storage"

	"github.com/natefinch/atomic"
)

// LocalFileStorage is an ObjectStore that keeps payloads on the local
// filesystem. Payloads are content-addressed by SHA-256 under
// <dataDir>/<bucket>/objects/<first two hex chars>/<hash>, and each key has a
// small JSON index entry under <dataDir>/<bucket>/keys/ pointing at its
// payload. Index entries are named by the SHA-256 of the key, so no key can be
// a path prefix of another key's entry. Identical payloads are hard-linked across buckets.
type LocalFileStorage struct {
	dataDir string
	now     func() time.Time
}

// ObjectInfo is the on-disk record that maps a key to its payload.
type ObjectInfo struct {
	Hash            string    `json:"hash"`
	ETag            string    `json:"etag"`
	Size            int64     `json:"size"`
	ContentEncoding string    `json:"content_encoding,omitempty"`
	LastModified    time.Time `json:"last_modified"`
}

// NewLocalFileStorage creates a new LocalFileStorage rooted at dataDir.
func NewLocalFileStorage(dataDir string) *LocalFileStorage {
	return &LocalFileStorage{dataDir: dataDir, now: time.Now}
}

// ObjectPath computes the full filesystem path for the payload identified by
// hashHex within the given bucket.
func ObjectPath(directory string, bucket string, hashHex string) (string, error) {
	if len(hashHex) < 2 {
		return "", fmt.Errorf("invalid hash length: %d", len(hashHex))
	}
	subdir := hashHex[:2]
	return filepath.Join(directory, bucket, "objects", subdir, hashHex), nil
}

// IndexPath computes the filesystem path of the index entry for key.
func IndexPath(directory string, bucket string, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(key))
	keyHex := hex.EncodeToString(sum[:])
	return filepath.Join(directory, bucket, "keys", keyHex[:2], keyHex+".json"), nil
}

func validateKey(key string) error {
	if key == "" {
		return errors.New("object key must not be empty")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("object key %q must be relative", key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("object key %q contains an invalid path segment", key)
		}
	}
	return nil
}

func validateBucket(bucket string) error {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return fmt.Errorf("invalid bucket name %q", bucket)
	}
	return nil
}

// LocateExistingObject returns the payload files in any bucket that share
// hashHex and size with targetObject.
func LocateExistingObject(directory string, targetObject string, hashHex string, size int64) []string {
	subdir := hashHex[:2]
	pattern := filepath.Join(directory, "*", "objects", subdir, hashHex)
	matches, _ := filepath.Glob(pattern)

	results := make([]string, 0)
	for _, existing := range matches {
		if existing == targetObject {
			continue
		}

		info, err := os.Stat(existing)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		if info.Size() != size {
			continue
		}

		results = append(results, existing)
	}

	return results
}

// writePayload stores data under its content address, linking to an existing
// identical payload when one is available.
func (s *LocalFileStorage) writePayload(bucket string, hashHex string, data []byte) error {
	objPath, err := ObjectPath(s.dataDir, bucket, hashHex)
	if err != nil {
		return err
	}

	if info, err := os.Stat(objPath); err == nil && info.Size() == int64(len(data)) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return err
	}

	matches := LocateExistingObject(s.dataDir, objPath, hashHex, int64(len(data)))
	for _, existing := range matches {
		if err := CopyOrLinkFile(existing, objPath); err == nil {
			return nil
		}
	}

	return atomic.WriteFile(objPath, bytes.NewReader(data))
}

// PutObject implements storage.ObjectStore.
func (s *LocalFileStorage) PutObject(ctx context.Context, bucket string, key string, data []byte, contentEncoding string) (storage.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateBucket(bucket); err != nil {
		return nil, err
	}

	indexPath, err := IndexPath(s.dataDir, bucket, key)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	hashHex := hex.EncodeToString(sum[:])
	md5Sum := md5.Sum(data)
	etag := hex.EncodeToString(md5Sum[:])

	if err := s.writePayload(bucket, hashHex, data); err != nil {
		return nil, fmt.Errorf("write payload for %s/%s: %w", bucket, key, err)
	}

	entry := ObjectInfo{
		Hash:            hashHex,
		ETag:            etag,
		Size:            int64(len(data)),
		ContentEncoding: contentEncoding,
		LastModified:    s.now().UTC(),
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, err
	}
	if err := atomic.WriteFile(indexPath, bytes.NewReader(encoded)); err != nil {
		return nil, fmt.Errorf("write index for %s/%s: %w", bucket, key, err)
	}

	return storage.Receipt{
		"ETag":            `"` + etag + `"`,
		"ChecksumSHA256":  hashHex,
		"Size":            entry.Size,
		"ContentEncoding": contentEncoding,
	}, nil
}

// GetObject implements storage.ObjectStore. A missing key yields an error
// matching storage.ErrNoSuchKey.
func (s *LocalFileStorage) GetObject(ctx context.Context, bucket string, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateBucket(bucket); err != nil {
		return nil, err
	}

	entry, err := s.Stat(bucket, key)
	if err != nil {
		return nil, err
	}

	objPath, err := ObjectPath(s.dataDir, bucket, entry.Hash)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(objPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", storage.ErrNoSuchKey, bucket, key)
	}
	return f, err
}

// Stat returns the index entry for key.
func (s *LocalFileStorage) Stat(bucket string, key string) (ObjectInfo, error) {
	var entry ObjectInfo

	indexPath, err := IndexPath(s.dataDir, bucket, key)
	if err != nil {
		return entry, err
	}

	raw, err := os.ReadFile(indexPath)
	if errors.Is(err, fs.ErrNotExist) {
		return entry, fmt.Errorf("%w: %s/%s", storage.ErrNoSuchKey, bucket, key)
	}
	if err != nil {
		return entry, err
	}

	if err := json.Unmarshal(raw, &entry); err != nil {
		return entry, fmt.Errorf("decode index for %s/%s: %w", bucket, key, err)
	}
	return entry, nil
}

// DeleteBucket removes all on-disk payloads and keys for the given bucket by
// recursively deleting the bucket's directory under the storage root.
func (s *LocalFileStorage) DeleteBucket(bucket string) error {
	if err := validateBucket(bucket); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.dataDir, bucket))
}
