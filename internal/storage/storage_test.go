package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("avatars/", "/tmp/upload-123/Photo.PNG")

	assert.True(t, strings.HasPrefix(key, "avatars/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, ObjectKey("avatars/", "/tmp/upload-123/Photo.PNG"))
}

func TestObjectKeyWithoutExtension(t *testing.T) {
	key := ObjectKey("", "/tmp/blob")
	assert.Len(t, key, 36)
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000/media/a.png", PublicURL("http://localhost:9000/", "media", "a.png"))
	assert.Equal(t, "https://cdn.example.com/media/x/a.png", PublicURL("https://cdn.example.com", "media", "x/a.png"))
}

func TestSniffFile(t *testing.T) {
	dir := t.TempDir()

	png := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))

	size, contentType, err := sniffFile(png)
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)
	assert.Equal(t, "image/png", contentType)

	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, _, err = sniffFile(empty)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, _, err = sniffFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
