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

	ctx := context.Background()
	cfg := config.FromEnv()

	stores, err := backend.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open document stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	handler := &document.CreateHandler{
		Table:      stores.Table,
		Objects:    stores.Objects,
		TableName:  cfg.TableName,
		BucketName: cfg.BucketName,
	}

	lambda.Start(handler.Handle)
}
