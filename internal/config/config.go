// Package config loads runtime settings from the environment.
//
// Variables carry the DATASETMD_ prefix. An optional .env file is read first;
// values already present in the environment win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"datasetmd/internal/blob"
	"datasetmd/internal/infra/persistence"
	"datasetmd/internal/logging"
)

// Prefix is prepended to every environment variable name.
const Prefix = "DATASETMD_"

// Config holds all runtime configuration.
type Config struct {
	ListenAddr      string `env:"LISTEN_ADDR" envDefault:":8080"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string `env:"LOG_FORMAT" envDefault:"json"`
	TemplateDir     string `env:"TEMPLATE_DIR"`
	ExportQueueSize int    `env:"EXPORT_QUEUE_SIZE" envDefault:"32"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"datasetmd.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	Blob BlobConfig `envPrefix:"BLOB_"`
}

// BlobConfig holds artifact store settings.
type BlobConfig struct {
	Driver string `env:"DRIVER" envDefault:"fs"`
	FSRoot string `env:"FS_ROOT" envDefault:"artifacts"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3PathStyle bool   `env:"S3_PATH_STYLE" envDefault:"false"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY"`
	MinIOBucket    string `env:"MINIO_BUCKET"`
	MinIORegion    string `env:"MINIO_REGION" envDefault:"us-east-1"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

// Load reads dotenv files (default ".env"; missing files are skipped) and
// then parses the process environment.
func Load(dotenv ...string) (*Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return parse(env.Options{Prefix: Prefix})
}

// FromMap parses configuration from vars instead of the process
// environment. Keys include the prefix.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver names and the keys each driver requires.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if c.ExportQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("export queue size must be positive"))
	}
	switch persistence.Driver(c.StoreDriver) {
	case persistence.DriverMemory:
	case persistence.DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("%sSQLITE_PATH required for sqlite store", Prefix))
		}
	case persistence.DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("%sPOSTGRES_DSN required for postgres store", Prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverMemory:
	case blob.DriverFilesystem:
		if c.Blob.FSRoot == "" {
			errs = append(errs, fmt.Errorf("%sBLOB_FS_ROOT required for fs blob driver", Prefix))
		}
	case blob.DriverS3:
		if c.Blob.S3Bucket == "" {
			errs = append(errs, fmt.Errorf("%sBLOB_S3_BUCKET required for s3 blob driver", Prefix))
		}
	case blob.DriverMinIO:
		if c.Blob.MinIOEndpoint == "" || c.Blob.MinIOBucket == "" {
			errs = append(errs, fmt.Errorf("%sBLOB_MINIO_ENDPOINT and %sBLOB_MINIO_BUCKET required for minio blob driver", Prefix, Prefix))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() slog.Level {
	lvl, _ := logging.ParseLevel(c.LogLevel)
	return lvl
}

// Format returns the parsed log format.
func (c *Config) Format() logging.Format {
	f, _ := logging.ParseFormat(c.LogFormat)
	return f
}

// BlobStore converts the blob settings for blob.Open. S3 credentials come from
// the default AWS chain.
func (c *Config) BlobStore() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Region:    c.Blob.S3Region,
			Bucket:    c.Blob.S3Bucket,
			Endpoint:  c.Blob.S3Endpoint,
			PathStyle: c.Blob.S3PathStyle,
		},
		MinIO: blob.MinIOConfig{
			Endpoint:        c.Blob.MinIOEndpoint,
			AccessKeyID:     c.Blob.MinIOAccessKey,
			SecretAccessKey: c.Blob.MinIOSecretKey,
			Bucket:          c.Blob.MinIOBucket,
			Region:          c.Blob.MinIORegion,
			UseSSL:          c.Blob.MinIOUseSSL,
		},
	}
}

// RecordStore converts the store settings for persistence.Open.
func (c *Config) RecordStore() persistence.Config {
	return persistence.Config{
		Driver:      persistence.Driver(c.StoreDriver),
		SQLitePath:  c.SQLitePath,
		PostgresDSN: c.PostgresDSN,
	}
}
