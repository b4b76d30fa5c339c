package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds AWS S3 settings. Endpoint is optional and enables path-style addressing.
type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
	KeyPrefix       string
}

// S3Uploader stores files in an S3 bucket
type S3Uploader struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Uploader builds an S3 client. Static credentials are used when both keys are set,
// otherwise the default AWS credential chain applies.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{client: client, cfg: cfg}, nil
}

// Upload stores the local file under a fresh key
func (u *S3Uploader) Upload(ctx context.Context, localFilePath string) (*UploadResult, error) {
	size, contentType, err := sniffFile(localFilePath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(localFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", localFilePath, err)
	}
	defer f.Close()

	key := ObjectKey(u.cfg.KeyPrefix, localFilePath)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", key, err)
	}

	return &UploadResult{
		URL: PublicURL(u.cfg.PublicURL, u.cfg.Bucket, key),
		Key: key,
	}, nil
}

// Ping checks that the bucket is reachable
func (u *S3Uploader) Ping(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(u.cfg.Bucket)})
	return err
}
