package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chirp/internal/config"
	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newStore(t *testing.T) *LocalStore {
	return NewLocalStore(&config.Config{
		MediaUploadDir:       t.TempDir(),
		MediaBaseURL:         "/media/",
		MediaMaxUploadSizeMB: 1,
	})
}

func TestDetermineMediaType(t *testing.T) {
	tests := []struct {
		contentType string
		expected    models.MediaType
	}{
		{"image/png", models.MediaTypeImage},
		{"image/jpeg", models.MediaTypeImage},
		{"IMAGE/GIF", models.MediaTypeGIF},
		{"image/gif; charset=binary", models.MediaTypeGIF},
		{"video/mp4", models.MediaTypeVideo},
		{"application/pdf", models.MediaTypeNone},
		{"", models.MediaTypeNone},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetermineMediaType(tt.contentType))
		})
	}
}

func TestResolveContentType_SniffsWhenUndeclared(t *testing.T) {
	data := pngBytes(t)
	assert.Equal(t, "image/png", ResolveContentType(data, ""))
	assert.Equal(t, "image/png", ResolveContentType(data, "application/octet-stream"))
	assert.Equal(t, "video/mp4", ResolveContentType(data, "video/mp4"))
}

func TestLocalStore_UploadAndDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	url, err := store.Upload(ctx, pngBytes(t), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/media/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	path := filepath.Join(store.Dir(), strings.TrimPrefix(url, "/media/"))
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, url))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, url))
}

func TestLocalStore_UploadGIF(t *testing.T) {
	store := newStore(t)
	url, err := store.Upload(context.Background(), gifBytes(t), "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".gif"))
}

func TestLocalStore_UploadRejects(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		data        []byte
		contentType string
	}{
		{"empty", nil, "image/png"},
		{"too large", bytes.Repeat([]byte{0}, 2*1024*1024), "video/mp4"},
		{"unsupported type", []byte("%PDF-1.4"), "application/pdf"},
		{"corrupt image", []byte("not really a png"), "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Upload(ctx, tt.data, tt.contentType)
			require.Error(t, err)
			assert.True(t, models.HasCode(err, models.CodeValidation))
		})
	}
}

func TestLocalStore_DeleteRejectsForeignURLs(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for _, url := range []string{"/elsewhere/a.png", "/media/../etc/passwd", "/media/", "/media/a/b.png"} {
		err := store.Delete(ctx, url)
		require.Error(t, err, url)
		assert.True(t, models.HasCode(err, models.CodeValidation), url)
	}
}
