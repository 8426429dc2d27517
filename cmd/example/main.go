package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"docstore/internal/backend"
	"docstore/internal/document"
	"docstore/internal/logging"

	"github.com/minio/minio-go/v7"
)

// getenv returns the value of the environment variable named by key or
// fallback if the variable is not present.
func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

const (
	DocumentID      = "example-document"
	DocumentContent = "Hello from the docstore example!\n"
)

// CreateDocument posts a sample document to docsd.
func CreateDocument(ctx context.Context, baseURL string) error {
	body := map[string]any{
		"docsData": map[string]any{
			"headers": map[string]any{
				"id":           DocumentID,
				"owner":        "example",
				"filename":     "example.txt",
				"size":         fmt.Sprint(len(DocumentContent)),
				"content_type": "text/plain",
			},
			"body": map[string]any{
				"document": DocumentContent,
			},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/documents", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("create returned %s: %s", resp.Status, text)
	}

	slog.Info("Created document", "id", DocumentID, "response", string(text))
	return nil
}

// FetchObject downloads key through docsd and returns the decompressed bytes.
func FetchObject(ctx context.Context, baseURL string, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/documents/"+key, nil)
	if err != nil {
		return nil, err
	}
	// Ask for the stored bytes as-is so the transport does not inflate them.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %q: %w", key, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %q returned %s: %s", key, resp.Status, raw)
	}

	return document.Gunzip(raw)
}

// ListDocumentObjects lists everything stored under the document's prefix
// directly from the S3 endpoint.
func ListDocumentObjects(ctx context.Context, store *backend.MinioStorage, bucket string) error {
	slog.Info("Objects for document", "bucket", bucket, "prefix", DocumentID+"/")
	for objectInfo := range store.Client().ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: DocumentID + "/", Recursive: true}) {
		if objectInfo.Err != nil {
			return fmt.Errorf("failed to list objects in bucket %q: %w", bucket, objectInfo.Err)
		}
		slog.Info("Object in bucket", "key", objectInfo.Key, "size", objectInfo.Size)
	}
	return nil
}

func Run(ctx context.Context, baseURL string) error {
	// 1. Store the document.
	if err := CreateDocument(ctx, baseURL); err != nil {
		return err
	}

	// 2. The get route uses the id as the object key, so the body lives
	// under "<id>/content".
	content, err := FetchObject(ctx, baseURL, document.ContentKey(DocumentID))
	if err != nil {
		return err
	}
	slog.Info("Fetched content", "body", strings.TrimSpace(string(content)))

	// 3. The metadata copy sits next to it.
	metadata, err := FetchObject(ctx, baseURL, document.MetadataKey(DocumentID))
	if err != nil {
		return err
	}
	var meta document.Metadata
	if err := json.Unmarshal(metadata, &meta); err != nil {
		return fmt.Errorf("failed to decode metadata: %w", err)
	}
	slog.Info("Fetched metadata", "uri", meta.URI, "sha256", meta.SHA256)

	// 4. Optionally inspect the bucket directly.
	endpoint := getenv("MINIO_ENDPOINT", "")
	if endpoint == "" {
		return nil
	}

	store, err := backend.NewMinioStorage(backend.MinioOptions{
		Endpoint:  endpoint,
		AccessKey: getenv("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey: getenv("MINIO_SECRET_KEY", "minioadmin"),
		Insecure:  true,
	})
	if err != nil {
		return err
	}
	return ListDocumentObjects(ctx, store, getenv("BUCKET_NAME", "documents"))
}

func main() {
	logging.Setup(logging.FormatText)

	baseURL := getenv("DOCSD_URL", "http://localhost:9000")

	if err := Run(context.Background(), baseURL); err != nil {
		slog.Error("error running example", "err", err)
		os.Exit(1)
	}
}
