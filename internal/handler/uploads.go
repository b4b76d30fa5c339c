package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prperemyshlev/account-service/internal/apperror"
	"github.com/prperemyshlev/account-service/internal/service"
	"go.uber.org/zap"
)

// tempUploads writes multipart files to a scratch directory and removes them afterwards
type tempUploads struct {
	dir    string
	logger *zap.Logger
	paths  []string
}

func newTempUploads(dir string, logger *zap.Logger) *tempUploads {
	return &tempUploads{dir: dir, logger: logger}
}

// single returns the only file sent under field, nil when none was sent
func (u *tempUploads) single(c *gin.Context, field string) (*service.LocalFile, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		if err == http.ErrNotMultipart {
			return nil, nil
		}
		return nil, apperror.Validation("Invalid multipart form")
	}

	files := form.File[field]
	switch len(files) {
	case 0:
		return nil, nil
	case 1:
	default:
		return nil, apperror.Validation(fmt.Sprintf("Only one %s file is allowed", field))
	}

	return u.save(c, files[0])
}

func (u *tempUploads) save(c *gin.Context, fh *multipart.FileHeader) (*service.LocalFile, error) {
	if err := os.MkdirAll(u.dir, 0o750); err != nil {
		return nil, apperror.Internal("Failed to store upload", err)
	}

	name := filepath.Base(fh.Filename)
	dst := filepath.Join(u.dir, uuid.New().String()+strings.ToLower(filepath.Ext(name)))
	if err := c.SaveUploadedFile(fh, dst); err != nil {
		return nil, apperror.Internal("Failed to store upload", err)
	}

	u.paths = append(u.paths, dst)
	return &service.LocalFile{Path: dst, OriginalName: name}, nil
}

// cleanup removes every file saved during the request
func (u *tempUploads) cleanup() {
	for _, p := range u.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			u.logger.Warn("failed to remove temp upload", zap.String("path", p), zap.Error(err))
		}
	}
	u.paths = nil
}
