package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage drivers
const (
	DriverMinio = "minio"
	DriverS3    = "s3"
)

// ErrEmptyFile is returned when the file to upload has no content
var ErrEmptyFile = errors.New("file is empty")

// UploadResult describes a stored object
type UploadResult struct {
	URL string
	Key string
}

// Uploader stores a local file and returns where it can be fetched from
type Uploader interface {
	Upload(ctx context.Context, localFilePath string) (*UploadResult, error)
}

// ObjectKey builds a unique object key that keeps the original file extension
func ObjectKey(prefix, localFilePath string) string {
	ext := strings.ToLower(filepath.Ext(localFilePath))
	return prefix + uuid.New().String() + ext
}

// PublicURL joins the public base URL, bucket and key
func PublicURL(baseURL, bucket, key string) string {
	return strings.TrimRight(baseURL, "/") + "/" + bucket + "/" + key
}

// sniffFile returns the size and detected content type of a local file
func sniffFile(localFilePath string) (int64, string, error) {
	f, err := os.Open(localFilePath)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open %s: %w", localFilePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, "", fmt.Errorf("failed to stat %s: %w", localFilePath, err)
	}
	if info.Size() == 0 {
		return 0, "", ErrEmptyFile
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, "", fmt.Errorf("failed to read %s: %w", localFilePath, err)
	}

	return info.Size(), http.DetectContentType(head[:n]), nil
}
