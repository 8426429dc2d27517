package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"docstore/internal/auth"
	"docstore/internal/backend"
	"docstore/internal/config"
	"docstore/internal/document"
	"docstore/internal/logging"
	"docstore/internal/server"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func Run(ctx context.Context) error {

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env file: %w", err)
	}

	env := config.FromEnv()

	listen := flag.String("listen", env.Listen, "HTTP listen port")
	dataDir := flag.String("data-dir", env.DataDir, "directory for local objects and the sqlite table")

	flag.Parse()

	logging.Setup(logging.FormatText)

	// Ensure data directory is absolute for easier debugging.
	absDataDir, err := filepath.Abs(*dataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory: %w", err)
	}

	cfg := config.FromEnv(
		config.WithListen(*listen),
		config.WithDataDir(absDataDir),
	)

	stores, err := backend.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open document stores: %w", err)
	}
	defer stores.Close()

	if minioStore, ok := stores.Objects.(*backend.MinioStorage); ok {
		if err := minioStore.EnsureBucket(ctx, cfg.BucketName, cfg.Region); err != nil {
			return err
		}
	}

	srv := &server.Server{
		Create: &document.CreateHandler{
			Table:      stores.Table,
			Objects:    stores.Objects,
			TableName:  cfg.TableName,
			BucketName: cfg.BucketName,
		},
		Get: &document.GetHandler{
			Objects:    stores.Objects,
			BucketName: cfg.BucketName,
		},
	}

	if cfg.AuthUser != "" {
		srv.Authenticator = auth.NewBasicAuthEngine(cfg.AuthUser, cfg.AuthPassword)
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Listen),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		slog.Info("Starting docsd HTTP server",
			"port", cfg.Listen,
			"table_backend", cfg.TableBackend,
			"object_backend", cfg.ObjectBackend,
			"bucket", cfg.BucketName,
			"table", cfg.TableName,
		)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		slog.Error("docsd exited with error", "error", err)
		os.Exit(1)
	}
}
