package backend_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"docstore/internal/backend"
	"docstore/pkg/storage"

	"github.com/stretchr/testify/require"
)

func readObject(t *testing.T, engine *backend.LocalFileStorage, bucket string, key string) []byte {
	t.Helper()
	rc, err := engine.GetObject(t.Context(), bucket, key)
	require.NoError(t, err, "GetObject error")
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err, "reading object")
	return got
}

func TestLocalFileStoragePutAndGet(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	engine := backend.NewLocalFileStorage(dataDir)
	bucket := "example"

	payload := []byte("hello local storage")
	sum := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(sum[:])

	receipt, err := engine.PutObject(t.Context(), bucket, "abc/content", payload, storage.ContentEncodingGzip)
	require.NoError(t, err, "PutObject error")
	require.Equal(t, hashHex, receipt["ChecksumSHA256"])
	require.Equal(t, int64(len(payload)), receipt["Size"])

	// The payload is content addressed.
	objPath := filepath.Join(dataDir, bucket, "objects", hashHex[:2], hashHex)
	info, err := os.Stat(objPath)
	require.NoError(t, err, "expected object file to exist")
	require.False(t, info.IsDir(), "object path should be a file")

	require.Equal(t, payload, readObject(t, engine, bucket, "abc/content"), "payload mismatch")

	entry, err := engine.Stat(bucket, "abc/content")
	require.NoError(t, err)
	require.Equal(t, storage.ContentEncodingGzip, entry.ContentEncoding)
	require.Equal(t, hashHex, entry.Hash)
}

func TestLocalFileStorageOverwrite(t *testing.T) {
	t.Parallel()

	engine := backend.NewLocalFileStorage(t.TempDir())

	_, err := engine.PutObject(t.Context(), "bucket", "doc", []byte("first"), "")
	require.NoError(t, err)
	_, err = engine.PutObject(t.Context(), "bucket", "doc", []byte("second"), "")
	require.NoError(t, err)

	require.Equal(t, []byte("second"), readObject(t, engine, "bucket", "doc"))
}

func TestLocalFileStorageKeysAreExact(t *testing.T) {
	t.Parallel()

	engine := backend.NewLocalFileStorage(t.TempDir())

	_, err := engine.PutObject(t.Context(), "bucket", "xyz/content", []byte("body"), "")
	require.NoError(t, err)

	// A key and its "directory" are distinct objects.
	_, err = engine.GetObject(t.Context(), "bucket", "xyz")
	require.ErrorIs(t, err, storage.ErrNoSuchKey)

	_, err = engine.PutObject(t.Context(), "bucket", "xyz", []byte("top"), "")
	require.NoError(t, err)
	require.Equal(t, []byte("top"), readObject(t, engine, "bucket", "xyz"))
	require.Equal(t, []byte("body"), readObject(t, engine, "bucket", "xyz/content"))
}

func TestLocalFileStorageKeysSharingAPrefix(t *testing.T) {
	t.Parallel()

	engine := backend.NewLocalFileStorage(t.TempDir())

	keys := []string{"abc", "abc.json/content", "abc.json", "abc/content", "abc/content.json"}
	for _, key := range keys {
		_, err := engine.PutObject(t.Context(), "bucket", key, []byte("payload "+key), "")
		require.NoErrorf(t, err, "PutObject %q", key)
	}
	for _, key := range keys {
		require.Equal(t, []byte("payload "+key), readObject(t, engine, "bucket", key))
	}
}

func TestLocalFileStorageIndexPathIsFlat(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()

	plain, err := backend.IndexPath(dataDir, "bucket", "abc")
	require.NoError(t, err)
	nested, err := backend.IndexPath(dataDir, "bucket", "abc.json/content")
	require.NoError(t, err)

	keysDir := filepath.Join(dataDir, "bucket", "keys")
	require.Equal(t, keysDir, filepath.Dir(filepath.Dir(plain)))
	require.Equal(t, keysDir, filepath.Dir(filepath.Dir(nested)))
	require.NotEqual(t, plain, nested)
}

func TestLocalFileStorageMissingKey(t *testing.T) {
	t.Parallel()

	engine := backend.NewLocalFileStorage(t.TempDir())

	_, err := engine.GetObject(t.Context(), "bucket", "missing")
	require.ErrorIs(t, err, storage.ErrNoSuchKey)
}

func TestLocalFileStorageInvalidKeys(t *testing.T) {
	t.Parallel()

	engine := backend.NewLocalFileStorage(t.TempDir())

	for _, key := range []string{"", "/abs", "a/../b", "a//b", "..", "a/./b"} {
		_, err := engine.PutObject(t.Context(), "bucket", key, []byte("data"), "")
		require.Errorf(t, err, "expected error for key %q", key)
	}

	_, err := engine.PutObject(t.Context(), "../escape", "key", []byte("data"), "")
	require.Error(t, err, "expected error for bucket with a separator")
}

func TestLocalFileStorageCanceledContext(t *testing.T) {
	t.Parallel()

	engine := backend.NewLocalFileStorage(t.TempDir())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := engine.PutObject(ctx, "bucket", "key", []byte("data"), "")
	require.ErrorIs(t, err, context.Canceled)

	_, err = engine.GetObject(ctx, "bucket", "key")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocalFileStorageHardLinksAcrossBuckets(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	engine := backend.NewLocalFileStorage(dataDir)

	payload := []byte("shared payload")
	sum := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(sum[:])

	bucket1 := "bucket1"
	bucket2 := "bucket2"

	_, err := engine.PutObject(t.Context(), bucket1, "one", payload, "")
	require.NoError(t, err, "PutObject bucket1 error")
	_, err = engine.PutObject(t.Context(), bucket2, "two", payload, "")
	require.NoError(t, err, "PutObject bucket2 error")

	subdir := hashHex[:2]
	path1 := filepath.Join(dataDir, bucket1, "objects", subdir, hashHex)
	path2 := filepath.Join(dataDir, bucket2, "objects", subdir, hashHex)

	info1, err := os.Stat(path1)
	require.NoError(t, err, "expected object file for bucket1")
	info2, err := os.Stat(path2)
	require.NoError(t, err, "expected object file for bucket2")

	require.Equal(t, info1.Size(), info2.Size(), "sizes should match")
	require.True(t, os.SameFile(info1, info2), "files should be hard-linked (same inode)")
}

func TestLocalFileStorageDeleteBucket(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	engine := backend.NewLocalFileStorage(dataDir)

	_, err := engine.PutObject(t.Context(), "bucket", "key", []byte("data"), "")
	require.NoError(t, err)

	require.NoError(t, engine.DeleteBucket("bucket"))

	_, err = os.Stat(filepath.Join(dataDir, "bucket"))
	require.True(t, os.IsNotExist(err), "bucket directory should be removed")

	_, err = engine.GetObject(t.Context(), "bucket", "key")
	require.ErrorIs(t, err, storage.ErrNoSuchKey)
}
