package storage

import (
	"context"
	"errors"
	"io"
)

// ContentEncodingGzip is the content encoding recorded on every object the
// document handlers write.
const ContentEncodingGzip = "gzip"

// Receipt is the raw acknowledgement a backend returns for a successful
// write. It is rendered verbatim into diagnostic responses, so backends should
// keep it JSON-friendly.
type Receipt map[string]any

// ObjectStore defines the interface for a storage backend that manages
// opaque object payloads organized into buckets and addressed by key.
type ObjectStore interface {
	// PutObject stores data under key in bucket, replacing any existing
	// object. contentEncoding is recorded alongside the payload.
	PutObject(ctx context.Context, bucket string, key string, data []byte, contentEncoding string) (Receipt, error)

	// GetObject opens the payload stored under key in bucket. The caller
	// must close the returned reader.
	GetObject(ctx context.Context, bucket string, key string) (io.ReadCloser, error)
}

// MetadataTable is a key-value table of typed attribute records.
type MetadataTable interface {
	// PutItem inserts item into table, replacing any record with the same
	// primary key. No conditional check is performed.
	PutItem(ctx context.Context, table string, item Item) (Receipt, error)
}

// ErrNoSuchKey is returned (wrapped) by object stores when a key does not
// exist.
var ErrNoSuchKey = errors.New("the specified key does not exist")
