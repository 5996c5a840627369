package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

var errInvalidKey = errors.New("invalid object key")

// LocalStorage keeps media blobs on a filesystem rooted at a base directory.
type LocalStorage struct {
	fs      afero.Fs
	baseURL string
	log     zerolog.Logger
}

// NewLocalStorage creates a storage backend rooted at basePath on fs.
// Display URLs are baseURL + "/" + key.
func NewLocalStorage(fs afero.Fs, basePath, baseURL string, log zerolog.Logger) (*LocalStorage, error) {
	logger := log.With().Str("component", "local-storage").Logger()

	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("local storage path is required")
	}
	if err := fs.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local storage directory: %w", err)
	}

	storage := &LocalStorage{
		fs:      afero.NewBasePathFs(fs, basePath),
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		log:     logger,
	}

	logger.Info().
		Str("path", basePath).
		Str("base_url", storage.baseURL).
		Msg("local storage initialized")

	return storage, nil
}

// cleanKey rejects keys that would escape the base directory.
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	if cleaned == "/" || strings.Contains(key, "..") {
		return "", errInvalidKey
	}
	return cleaned, nil
}

// Upload stores a file on the filesystem.
func (l *LocalStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := l.fs.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := l.fs.Remove(name); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			l.log.Warn().Err(rmErr).Str("key", key).Msg("failed to remove partial file")
		}
		return fmt.Errorf("failed to write file: %w", err)
	}

	l.log.Debug().
		Str("key", key).
		Int64("bytes", written).
		Msg("file uploaded to local storage")
	return nil
}

// Download opens a stored file. The content type is sniffed from its first bytes.
func (l *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	name, err := cleanKey(key)
	if err != nil {
		return nil, "", err
	}

	file, err := l.fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		file.Close()
		return nil, "", fmt.Errorf("detect content type: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, "", fmt.Errorf("rewind file: %w", err)
	}
	return file, mtype.String(), nil
}

// GeneratePresignedDownloadURL returns a direct URL to the file; local files need no signing.
func (l *LocalStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	name, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if _, err := l.fs.Stat(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrObjectNotFound
		}
		return "", err
	}
	return l.baseURL + name, nil
}

func (l *LocalStorage) DeleteObject(ctx context.Context, key string) error {
	name, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := l.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	l.log.Debug().Str("key", key).Msg("file deleted from local storage")
	return nil
}
