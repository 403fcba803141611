package blob

import (
	"context"
	"fmt"

	fsstore "datasetmd/internal/infra/blob/fs"
	memorystore "datasetmd/internal/infra/blob/memory"
	miniostore "datasetmd/internal/infra/blob/minio"
	s3store "datasetmd/internal/infra/blob/s3"
)

// Config selects and configures a blob driver.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
	MinIO  MinIOConfig
}

// S3Config configures the s3 driver. Credentials fall back to the default
// AWS chain when AccessKeyID is empty.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	PathStyle       bool
}

// MinIOConfig configures the minio driver.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
}

// Open constructs the store named by cfg.Driver. An empty driver selects the
// filesystem store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case DriverMemory:
		return memorystore.New(), nil
	case DriverS3:
		return s3store.New(ctx, s3store.Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			SessionToken:    cfg.S3.SessionToken,
			PathStyle:       cfg.S3.PathStyle,
		})
	case DriverMinIO:
		return miniostore.New(ctx, miniostore.Config{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKeyID,
			SecretAccessKey: cfg.MinIO.SecretAccessKey,
			Bucket:          cfg.MinIO.Bucket,
			Region:          cfg.MinIO.Region,
			UseSSL:          cfg.MinIO.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
