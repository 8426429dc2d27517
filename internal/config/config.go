package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	TableBackendDynamo   = "dynamodb"
	TableBackendSQLite   = "sqlite"
	TableBackendPostgres = "postgres"

	ObjectBackendS3    = "s3"
	ObjectBackendLocal = "local"

	DefaultRegion     = "us-east-1"
	DefaultS3Endpoint = "s3.amazonaws.com"
	DefaultListen     = "9000"
	DefaultDataDir    = "./data"
)

// Config holds the runtime configuration shared by the Lambda handlers and
// the local development server.
type Config struct {
	TableName  string
	BucketName string
	Region     string

	TableBackend  string
	ObjectBackend string

	// DataDir is the root directory for the local object store and the
	// default location of the sqlite database.
	DataDir     string
	DatabaseURL string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Insecure  bool

	Listen       string
	AuthUser     string
	AuthPassword string
}

type ConfigOption func(*Config)

func WithTableName(name string) ConfigOption {
	return func(cfg *Config) {
		cfg.TableName = name
	}
}

func WithBucketName(name string) ConfigOption {
	return func(cfg *Config) {
		cfg.BucketName = name
	}
}

func WithRegion(region string) ConfigOption {
	return func(cfg *Config) {
		cfg.Region = region
	}
}

func WithTableBackend(backend string) ConfigOption {
	return func(cfg *Config) {
		cfg.TableBackend = backend
	}
}

func WithObjectBackend(backend string) ConfigOption {
	return func(cfg *Config) {
		cfg.ObjectBackend = backend
	}
}

func WithDataDir(dataDir string) ConfigOption {
	return func(cfg *Config) {
		cfg.DataDir = dataDir
	}
}

func WithListen(listen string) ConfigOption {
	return func(cfg *Config) {
		cfg.Listen = listen
	}
}

func NewConfig(opts ...ConfigOption) Config {
	cfg := Config{
		Region:        DefaultRegion,
		TableBackend:  TableBackendDynamo,
		ObjectBackend: ObjectBackendS3,
		DataDir:       DefaultDataDir,
		S3Endpoint:    DefaultS3Endpoint,
		Listen:        DefaultListen,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// getenv returns the value of the environment variable named by key or
// fallback if the variable is not present or blank.
func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// FromEnv reads the configuration from the process environment and then
// applies opts on top of it.
func FromEnv(opts ...ConfigOption) Config {
	defaults := NewConfig()

	insecure, _ := strconv.ParseBool(getenv("DOCS_S3_INSECURE", "false"))

	cfg := Config{
		TableName:     getenv("TABLE_NAME", ""),
		BucketName:    getenv("BUCKET_NAME", ""),
		Region:        getenv("AWS_REGION", defaults.Region),
		TableBackend:  strings.ToLower(getenv("DOCS_TABLE_BACKEND", defaults.TableBackend)),
		ObjectBackend: strings.ToLower(getenv("DOCS_OBJECT_BACKEND", defaults.ObjectBackend)),
		DataDir:       getenv("DOCS_DATA_DIR", defaults.DataDir),
		DatabaseURL:   getenv("DOCS_DATABASE_URL", ""),
		S3Endpoint:    getenv("DOCS_S3_ENDPOINT", defaults.S3Endpoint),
		S3AccessKey:   getenv("DOCS_S3_ACCESS_KEY", ""),
		S3SecretKey:   getenv("DOCS_S3_SECRET_KEY", ""),
		S3Insecure:    insecure,
		Listen:        getenv("DOCS_LISTEN", defaults.Listen),
		AuthUser:      getenv("DOCS_AUTH_USER", ""),
		AuthPassword:  getenv("DOCS_AUTH_PASSWORD", ""),
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate reports every problem with cfg at once.
func (cfg Config) Validate() error {
	var errs []error

	if cfg.TableName == "" {
		errs = append(errs, errors.New("TABLE_NAME must not be empty"))
	}
	if cfg.BucketName == "" {
		errs = append(errs, errors.New("BUCKET_NAME must not be empty"))
	}

	switch cfg.TableBackend {
	case TableBackendDynamo, TableBackendSQLite:
	case TableBackendPostgres:
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DOCS_DATABASE_URL is required for the postgres table backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown table backend %q", cfg.TableBackend))
	}

	switch cfg.ObjectBackend {
	case ObjectBackendS3:
		if cfg.S3Endpoint == "" {
			errs = append(errs, errors.New("DOCS_S3_ENDPOINT must not be empty"))
		}
	case ObjectBackendLocal:
	default:
		errs = append(errs, fmt.Errorf("unknown object backend %q", cfg.ObjectBackend))
	}

	if cfg.AuthUser != "" && cfg.AuthPassword == "" {
		errs = append(errs, errors.New("DOCS_AUTH_PASSWORD is required when DOCS_AUTH_USER is set"))
	}

	return errors.Join(errs...)
}
