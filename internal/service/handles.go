package service

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/storage"
)

const defaultHandleCacheSize = 512

type displayHandle struct {
	url       string
	expiresAt time.Time
}

// handleCache hands out display URLs for media blobs, keyed by media id.
// Entries are reused until a fifth of their lifetime remains.
type handleCache struct {
	cache *lru.Cache
	files storage.FileStorage
	ttl   time.Duration
	now   func() time.Time
}

func newHandleCache(size int, files storage.FileStorage, ttl time.Duration, now func() time.Time) (*handleCache, error) {
	if size <= 0 {
		size = defaultHandleCacheSize
	}
	if ttl <= 0 {
		ttl = storage.DefaultPresignedURLExpiry
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &handleCache{cache: cache, files: files, ttl: ttl, now: now}, nil
}

// Resolve returns a display URL for m, issuing a new one when none is cached or it is about to expire.
func (h *handleCache) Resolve(ctx context.Context, m *domain.Media) (string, error) {
	now := h.now()
	if v, ok := h.cache.Get(m.ID); ok {
		handle := v.(displayHandle)
		if now.Before(handle.expiresAt.Add(-h.ttl / 5)) {
			return handle.url, nil
		}
	}

	url, err := h.files.GeneratePresignedDownloadURL(ctx, m.StorageKey, h.ttl)
	if err != nil {
		return "", err
	}
	h.cache.Add(m.ID, displayHandle{url: url, expiresAt: now.Add(h.ttl)})
	return url, nil
}

// Release drops the handle for a media id.
func (h *handleCache) Release(mediaID string) {
	h.cache.Remove(mediaID)
}

// Purge drops every handle.
func (h *handleCache) Purge() {
	h.cache.Purge()
}

func (h *handleCache) Len() int {
	return h.cache.Len()
}
