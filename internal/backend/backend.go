package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docstore/internal/config"
	"docstore/pkg/storage"
)

// Backends bundles the stores selected by a Config.
type Backends struct {
	Table   storage.MetadataTable
	Objects storage.ObjectStore

	closers []func() error
}

// Close releases any resources held by the stores.
func (b *Backends) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Open builds the table and object store described by cfg.
func Open(ctx context.Context, cfg config.Config) (*Backends, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Backends{}

	table, closer, err := openTable(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.Table = table
	if closer != nil {
		b.closers = append(b.closers, closer)
	}

	objects, err := OpenObjectStore(ctx, cfg)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Objects = objects

	return b, nil
}

func openTable(ctx context.Context, cfg config.Config) (storage.MetadataTable, func() error, error) {
	switch cfg.TableBackend {
	case config.TableBackendDynamo:
		table, err := NewDynamoTable(ctx, cfg.Region)
		if err != nil {
			return nil, nil, err
		}
		return table, nil, nil

	case config.TableBackendSQLite:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create data dir: %w", err)
			}
			dsn = filepath.Join(cfg.DataDir, "metadata.sqlite")
		}
		table, err := OpenSQLTable(ctx, DialectSQLite, dsn)
		if err != nil {
			return nil, nil, err
		}
		return table, table.Close, nil

	case config.TableBackendPostgres:
		table, err := OpenSQLTable(ctx, DialectPostgres, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return table, table.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown table backend %q", cfg.TableBackend)
}

// OpenObjectStore builds only the object store described by cfg.
func OpenObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.ObjectBackend {
	case config.ObjectBackendS3:
		objects, err := NewMinioStorage(MinioOptions{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Insecure:  cfg.S3Insecure,
		})
		if err != nil {
			return nil, err
		}
		return objects, nil

	case config.ObjectBackendLocal:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return NewLocalFileStorage(cfg.DataDir), nil
	}

	return nil, fmt.Errorf("unknown object backend %q", cfg.ObjectBackend)
}
