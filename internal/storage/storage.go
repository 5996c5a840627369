package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = errors.New("object not found in storage")

// FileStorage defines the interface for media blob operations.
type FileStorage interface {
	// Upload stores the object under objectKey, replacing any previous content.
	Upload(ctx context.Context, objectKey string, body io.Reader, size int64, contentType string) error

	// Download opens the object for reading and reports its content type.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, string, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading/viewing an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteObject removes an object. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, objectKey string) error
}

// MediaKey builds the object key for a media blob: media/<planID>/<mediaID><ext>.
func MediaKey(planID, mediaID, ext string) string {
	return path.Join("media", planID, mediaID+ext)
}
