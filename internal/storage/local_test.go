package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// smallest valid PNG header followed by padding
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func newTestLocalStorage(t *testing.T) (*LocalStorage, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewLocalStorage(fs, "/data/media", "/files/", zerolog.Nop())
	require.NoError(t, err)
	return s, fs
}

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, fs := newTestLocalStorage(t)
	key := MediaKey("plan-1", "media-1", ".png")
	assert.Equal(t, "media/plan-1/media-1.png", key)

	require.NoError(t, s.Upload(ctx, key, bytes.NewReader(pngBytes), int64(len(pngBytes)), "image/png"))

	exists, err := afero.Exists(fs, "/data/media/media/plan-1/media-1.png")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, contentType, err := s.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", contentType)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	url, err := s.GeneratePresignedDownloadURL(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "/files/media/plan-1/media-1.png", url)
}

func TestLocalStorageMissingObject(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestLocalStorage(t)

	_, _, err := s.Download(ctx, "media/nope/x.png")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = s.GeneratePresignedDownloadURL(ctx, "media/nope/x.png", 0)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// deleting twice is fine
	assert.NoError(t, s.DeleteObject(ctx, "media/nope/x.png"))
}

func TestLocalStorageDelete(t *testing.T) {
	ctx := context.Background()
	s, fs := newTestLocalStorage(t)
	key := MediaKey("p", "m", ".png")
	require.NoError(t, s.Upload(ctx, key, bytes.NewReader(pngBytes), 0, "image/png"))

	require.NoError(t, s.DeleteObject(ctx, key))
	exists, err := afero.Exists(fs, "/data/media/"+key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestLocalStorage(t)

	err := s.Upload(ctx, "../../etc/passwd", bytes.NewReader([]byte("x")), 1, "text/plain")
	assert.ErrorIs(t, err, errInvalidKey)
	_, _, err = s.Download(ctx, "")
	assert.ErrorIs(t, err, errInvalidKey)
}

func TestNewLocalStorageRequiresPath(t *testing.T) {
	_, err := NewLocalStorage(afero.NewMemMapFs(), "  ", "", zerolog.Nop())
	assert.Error(t, err)
}

type brokenReader struct{ sent bool }

func (r *brokenReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, pngBytes[:8]), nil
	}
	return 0, errors.New("connection reset")
}

func TestLocalStorageUploadRemovesPartialFile(t *testing.T) {
	ctx := context.Background()
	s, fs := newTestLocalStorage(t)
	key := MediaKey("plan-1", "media-2", ".png")

	err := s.Upload(ctx, key, &brokenReader{}, int64(len(pngBytes)), "image/png")
	require.Error(t, err)

	exists, err := afero.Exists(fs, "/data/media/media/plan-1/media-2.png")
	require.NoError(t, err)
	assert.False(t, exists)

	_, _, err = s.Download(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
