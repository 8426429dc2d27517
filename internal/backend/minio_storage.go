package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"docstore/pkg/storage"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures a connection to an S3-compatible endpoint.
type MinioOptions struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Insecure  bool
}

// MinioStorage is an ObjectStore backed by any S3-compatible service,
// including AWS S3 itself.
type MinioStorage struct {
	client *minio.Client
}

// NewMinioStorage connects to the endpoint described by opts. When no static
// keys are given the credentials are taken from the AWS environment variables
// and, failing that, from the instance/role metadata service.
func NewMinioStorage(opts MinioOptions) (*MinioStorage, error) {
	var creds *credentials.Credentials
	if opts.AccessKey != "" {
		creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.IAM{},
		})
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: !opts.Insecure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client for %q: %w", opts.Endpoint, err)
	}

	return &MinioStorage{client: client}, nil
}

// NewMinioStorageFromClient wraps an existing client.
func NewMinioStorageFromClient(client *minio.Client) *MinioStorage {
	return &MinioStorage{client: client}
}

// Client returns the underlying minio client.
func (s *MinioStorage) Client() *minio.Client {
	return s.client
}

// PutObject implements storage.ObjectStore.
func (s *MinioStorage) PutObject(ctx context.Context, bucket string, key string, data []byte, contentEncoding string) (storage.Receipt, error) {
	info, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentEncoding: contentEncoding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload object %q to bucket %q: %w", key, bucket, err)
	}

	receipt := storage.Receipt{
		"ETag": `"` + info.ETag + `"`,
		"Size": info.Size,
	}
	if info.VersionID != "" {
		receipt["VersionId"] = info.VersionID
	}
	if info.ChecksumCRC32 != "" {
		receipt["ChecksumCRC32"] = info.ChecksumCRC32
	}
	return receipt, nil
}

// GetObject implements storage.ObjectStore. The returned reader streams the
// payload; a missing key surfaces as storage.ErrNoSuchKey on open.
func (s *MinioStorage) GetObject(ctx context.Context, bucket string, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q from bucket %q: %w", key, bucket, err)
	}

	// GetObject is lazy; Stat forces the request so missing keys fail here
	// instead of on the first Read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s/%s", storage.ErrNoSuchKey, bucket, key)
		}
		return nil, fmt.Errorf("failed to get object %q from bucket %q: %w", key, bucket, err)
	}

	return obj, nil
}

// EnsureBucket checks if a bucket exists, and creates it if it does not.
func (s *MinioStorage) EnsureBucket(ctx context.Context, bucket string, region string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
				return nil
			}
			return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
		}
	}
	return nil
}
