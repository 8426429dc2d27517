package main

import (
	"context"
	"log/slog"
	"os"

	"docstore/internal/backend"
	"docstore/internal/config"
	"docstore/internal/document"
	"docstore/internal/logging"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	logging.Setup(logging.FormatJSON)

	// The get function is deployed with BUCKET_NAME only.
	cfg := config.FromEnv()
	if cfg.BucketName == "" {
		slog.Error("BUCKET_NAME must not be empty")
		os.Exit(1)
	}

	objects, err := backend.OpenObjectStore(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to open object store", "error", err)
		os.Exit(1)
	}

	handler := &document.GetHandler{
		Objects:    objects,
		BucketName: cfg.BucketName,
	}

	lambda.Start(handler.Handle)
}
