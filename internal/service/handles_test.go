package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymmanager/workout-app/internal/domain"
)

type countingStorage struct {
	presigns int
}

func (s *countingStorage) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	return nil
}

func (s *countingStorage) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return nil, "", nil
}

func (s *countingStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	s.presigns++
	return fmt.Sprintf("https://bucket.example/%s?sig=%d", key, s.presigns), nil
}

func (s *countingStorage) DeleteObject(ctx context.Context, key string) error { return nil }

func TestHandleCacheReusesUntilNearExpiry(t *testing.T) {
	ctx := context.Background()
	files := &countingStorage{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h, err := newHandleCache(2, files, 10*time.Minute, func() time.Time { return now })
	require.NoError(t, err)

	m := &domain.Media{ID: "m1", StorageKey: "media/p/m1.png"}
	first, err := h.Resolve(ctx, m)
	require.NoError(t, err)
	second, err := h.Resolve(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, files.presigns)

	// inside the last fifth of the lifetime a fresh handle is issued
	now = now.Add(9 * time.Minute)
	third, err := h.Resolve(ctx, m)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, files.presigns)
}

func TestHandleCacheReleaseAndPurge(t *testing.T) {
	ctx := context.Background()
	h, err := newHandleCache(2, &countingStorage{}, time.Minute, time.Now)
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		_, err := h.Resolve(ctx, &domain.Media{ID: id, StorageKey: id})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, h.Len(), "least recently used handle is evicted")

	h.Release("c")
	assert.Equal(t, 1, h.Len())

	h.Purge()
	assert.Equal(t, 0, h.Len())
}
