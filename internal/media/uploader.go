// Package media stores images sent as base64 data URLs.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageBytes caps a decoded image.
const MaxImageBytes = 10 << 20

var (
	ErrInvalidDataURL   = errors.New("invalid image data url")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Uploader persists an image and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, dataURL string) (string, error)
}

// DiskUploader writes images under dir and serves them below baseURL.
type DiskUploader struct {
	dir     string
	baseURL string
}

func NewDiskUploader(dir, baseURL string) (*DiskUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskUploader{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (u *DiskUploader) Upload(ctx context.Context, dataURL string) (string, error) {
	contentType, data, err := decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + extensions[contentType]
	if err := os.WriteFile(filepath.Join(u.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return u.baseURL + "/" + name, nil
}

// decodeDataURL parses "data:<type>;base64,<payload>".
func decodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURL
	}
	contentType, encoding, ok := strings.Cut(meta, ";")
	if !ok || encoding != "base64" {
		return "", nil, ErrInvalidDataURL
	}
	contentType = strings.ToLower(contentType)
	if _, ok := extensions[contentType]; !ok {
		return "", nil, ErrUnsupportedImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return "", nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if len(data) > MaxImageBytes {
		return "", nil, ErrImageTooLarge
	}
	// The declared type must match the bytes; files are served back as-is.
	if detected := mimetype.Detect(data); !detected.Is(contentType) {
		return "", nil, fmt.Errorf("%w: declared %s, got %s", ErrUnsupportedImage, contentType, detected.String())
	}
	return contentType, data, nil
}
