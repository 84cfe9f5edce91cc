// Package media is the blob store behind tweet attachments.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"chirp/internal/config"
	"chirp/internal/models"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultUploadDir       = "/tmp/chirp/media"
	DefaultBaseURL         = "/media"
	DefaultMaxUploadSizeMB = 15
)

// Uploader stores bytes and returns the public URL of the stored object.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// Deleter removes a previously uploaded object by URL.
type Deleter interface {
	Delete(ctx context.Context, url string) error
}

// Store is the full media collaborator.
type Store interface {
	Uploader
	Deleter
}

// DetermineMediaType maps a content type onto the attachment kind.
func DetermineMediaType(contentType string) models.MediaType {
	ct := normalizeContentType(contentType)
	switch {
	case ct == "image/gif":
		return models.MediaTypeGIF
	case strings.HasPrefix(ct, "image/"):
		return models.MediaTypeImage
	case strings.HasPrefix(ct, "video/"):
		return models.MediaTypeVideo
	default:
		return models.MediaTypeNone
	}
}

// ResolveContentType returns the declared type, or the sniffed one when the
// client declared nothing useful.
func ResolveContentType(data []byte, declared string) string {
	ct := normalizeContentType(declared)
	if ct == "" || ct == "application/octet-stream" {
		return normalizeContentType(http.DetectContentType(data))
	}
	return ct
}

func normalizeContentType(contentType string) string {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}

// LocalStore keeps media on the local filesystem under uuid names.
type LocalStore struct {
	dir          string
	baseURL      string
	maxSizeBytes int64
}

// NewLocalStore builds a LocalStore from configuration, falling back to defaults.
func NewLocalStore(cfg *config.Config) *LocalStore {
	dir := DefaultUploadDir
	baseURL := DefaultBaseURL
	maxMB := DefaultMaxUploadSizeMB
	if cfg != nil {
		if cfg.MediaUploadDir != "" {
			dir = cfg.MediaUploadDir
		}
		if cfg.MediaBaseURL != "" {
			baseURL = cfg.MediaBaseURL
		}
		if cfg.MediaMaxUploadSizeMB > 0 {
			maxMB = cfg.MediaMaxUploadSizeMB
		}
	}
	return &LocalStore{
		dir:          dir,
		baseURL:      strings.TrimRight(baseURL, "/"),
		maxSizeBytes: int64(maxMB) * 1024 * 1024,
	}
}

// Dir is the directory objects are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// BaseURL is the URL prefix objects are served under.
func (s *LocalStore) BaseURL() string {
	return s.baseURL
}

func (s *LocalStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", models.NewInternalError(err)
	}
	if len(data) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(data)) > s.maxSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxSizeBytes/(1024*1024)))
	}

	ct := ResolveContentType(data, contentType)
	kind := DetermineMediaType(ct)
	if kind == models.MediaTypeNone {
		return "", models.NewValidationError("Unsupported media type")
	}
	if kind == models.MediaTypeImage || kind == models.MediaTypeGIF {
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", models.NewValidationError("Invalid image file")
		}
	}

	name := uuid.NewString() + extensionFor(ct)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", models.NewInternalError(err)
	}
	return s.baseURL + "/" + name, nil
}

// Delete removes the object behind url. Missing objects are not an error.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	name, ok := s.objectName(url)
	if !ok {
		return models.NewValidationError("Media URL does not belong to this store")
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return models.NewInternalError(err)
	}
	return nil
}

// objectName extracts the file name from url, rejecting anything that could
// escape the upload directory.
func (s *LocalStore) objectName(url string) (string, bool) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(url, prefix)
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.Contains(name, `\`) {
		return "", false
	}
	return name, true
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

func extensionFor(contentType string) string {
	if ext, ok := extensions[contentType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
