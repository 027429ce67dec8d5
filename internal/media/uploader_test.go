package media

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
}

func TestUploadWritesFile(t *testing.T) {
	dir := t.TempDir()
	u, err := NewDiskUploader(dir, "/media/")
	require.NoError(t, err)

	raw := pngBytes()
	url, err := u.Upload(context.Background(), "data:image/png;base64,"+base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/media/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(url, "/media/")))
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestUploadRejectsBadInput(t *testing.T) {
	u, err := NewDiskUploader(t.TempDir(), "/media")
	require.NoError(t, err)
	ctx := context.Background()

	cases := map[string]struct {
		input string
		want  error
	}{
		"not a data url": {"https://example.com/a.png", ErrInvalidDataURL},
		"no comma":       {"data:image/png;base64", ErrInvalidDataURL},
		"not base64":     {"data:image/png,abc", ErrInvalidDataURL},
		"bad payload":    {"data:image/png;base64,@@@", ErrInvalidDataURL},
		"svg":            {"data:image/svg+xml;base64,PHN2Zz4=", ErrUnsupportedImage},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := u.Upload(ctx, tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUploadRejectsMislabelledPayload(t *testing.T) {
	dir := t.TempDir()
	u, err := NewDiskUploader(dir, "/media")
	require.NoError(t, err)
	ctx := context.Background()

	html := base64.StdEncoding.EncodeToString([]byte("<html><script>alert(1)</script></html>"))
	_, err = u.Upload(ctx, "data:image/png;base64,"+html)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	gif := base64.StdEncoding.EncodeToString([]byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"))
	_, err = u.Upload(ctx, "data:image/jpeg;base64,"+gif)
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadRejectsOversizedImage(t *testing.T) {
	u, err := NewDiskUploader(t.TempDir(), "/media")
	require.NoError(t, err)

	payload := base64.StdEncoding.EncodeToString(make([]byte, MaxImageBytes+1))
	_, err = u.Upload(context.Background(), "data:image/jpeg;base64,"+payload)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestUploadHonoursCanceledContext(t *testing.T) {
	u, err := NewDiskUploader(t.TempDir(), "/media")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = u.Upload(ctx, "data:image/gif;base64,R0lGODlh")
	assert.ErrorIs(t, err, context.Canceled)
}
