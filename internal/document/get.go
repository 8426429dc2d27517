package document

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"docstore/pkg/storage"

	"github.com/aws/aws-lambda-go/events"
)

// GetHandler returns stored objects by key.
type GetHandler struct {
	Objects    storage.ObjectStore
	BucketName string
}

// Handle reads the object named by the id path parameter and returns it
// base64-encoded. The id is used as the object key verbatim, so a document
// body written by CreateHandler is reached with id "<id>/content".
func (h *GetHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	id := req.PathParameters["id"]
	if id == "" {
		slog.WarnContext(ctx, "Rejected get request", "reason", ErrMissingID)
		return badRequest(ErrMissingID), nil
	}

	data, err := h.Fetch(ctx, id)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	slog.InfoContext(ctx, "Fetched document", "key", id, "bucket", h.BucketName, "size", len(data))
	return gzipContent(data), nil
}

// Fetch reads the object stored under key to completion.
func (h *GetHandler) Fetch(ctx context.Context, key string) ([]byte, error) {
	rc, err := h.Objects.GetObject(ctx, h.BucketName, key)
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return buf.Bytes(), nil
}
