package storage

import (
	"context"
	"fmt"

	"github.com/schulmaterial/schulmaterial/internal/config"
	"github.com/schulmaterial/schulmaterial/internal/storage/local"
	s3backend "github.com/schulmaterial/schulmaterial/internal/storage/s3"
	"github.com/schulmaterial/schulmaterial/internal/storage/smb"
)

// NewBackend creates the Backend selected by the configuration.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StorageBackend {
	case "local":
		return local.New(local.Config{
			RootPath:   cfg.LocalStoragePath,
			CreateDirs: true,
		})
	case "s3":
		return s3backend.New(ctx, s3backend.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
	case "smb":
		return smb.New(smb.Config{MountPath: cfg.SMBMountPath})
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}
