package storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig holds MinIO connection settings
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	PublicURL string
	KeyPrefix string
}

// MinioUploader stores files in a MinIO bucket
type MinioUploader struct {
	client *minio.Client
	cfg    MinioConfig
}

// NewMinioUploader connects to MinIO and makes sure the bucket exists
func NewMinioUploader(ctx context.Context, cfg MinioConfig) (*MinioUploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}

	return &MinioUploader{client: client, cfg: cfg}, nil
}

// Upload stores the local file under a fresh key
func (u *MinioUploader) Upload(ctx context.Context, localFilePath string) (*UploadResult, error) {
	_, contentType, err := sniffFile(localFilePath)
	if err != nil {
		return nil, err
	}

	key := ObjectKey(u.cfg.KeyPrefix, localFilePath)
	_, err = u.client.FPutObject(ctx, u.cfg.Bucket, key, localFilePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("minio put %s: %w", key, err)
	}

	return &UploadResult{
		URL: PublicURL(u.cfg.PublicURL, u.cfg.Bucket, key),
		Key: key,
	}, nil
}

// Ping checks that the bucket is reachable
func (u *MinioUploader) Ping(ctx context.Context) error {
	_, err := u.client.BucketExists(ctx, u.cfg.Bucket)
	return err
}
