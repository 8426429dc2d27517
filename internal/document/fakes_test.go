package document_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"docstore/pkg/storage"
)

// call records one store operation in the order it happened.
type call struct {
	Op       string
	Table    string
	Bucket   string
	Key      string
	Item     storage.Item
	Data     []byte
	Encoding string
}

// recorder is an in-memory MetadataTable and ObjectStore that logs every
// call into a shared slice.
type recorder struct {
	mu      sync.Mutex
	calls   []call
	objects map[string][]byte

	failOn   string
	failWith error
	readErr  error
}

func newRecorder() *recorder {
	return &recorder{objects: make(map[string][]byte)}
}

func (r *recorder) record(c call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	if r.failOn != "" && (r.failOn == c.Op || r.failOn == c.Op+":"+c.Key) {
		return r.failWith
	}
	return nil
}

func (r *recorder) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recorder) PutItem(ctx context.Context, table string, item storage.Item) (storage.Receipt, error) {
	if err := r.record(call{Op: "PutItem", Table: table, Item: item}); err != nil {
		return nil, err
	}
	return storage.Receipt{"RequestId": "table-" + item["id"].Value}, nil
}

func (r *recorder) PutObject(ctx context.Context, bucket string, key string, data []byte, contentEncoding string) (storage.Receipt, error) {
	if err := r.record(call{Op: "PutObject", Bucket: bucket, Key: key, Data: data, Encoding: contentEncoding}); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.objects[bucket+"/"+key] = data
	r.mu.Unlock()
	return storage.Receipt{"ETag": fmt.Sprintf("%q", key)}, nil
}

func (r *recorder) GetObject(ctx context.Context, bucket string, key string) (io.ReadCloser, error) {
	if err := r.record(call{Op: "GetObject", Bucket: bucket, Key: key}); err != nil {
		return nil, err
	}
	r.mu.Lock()
	data, ok := r.objects[bucket+"/"+key]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", storage.ErrNoSuchKey, bucket, key)
	}
	if r.readErr != nil {
		return io.NopCloser(io.MultiReader(bytes.NewReader(data[:len(data)/2]), errReader{r.readErr})), nil
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

var errBoom = errors.New("boom")
