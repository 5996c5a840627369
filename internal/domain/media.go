package domain

import (
	"strings"
	"time"
)

// MediaType distinguishes captured photos from videos.
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

// Media stores metadata about a photo or video attached to a plan.
// The binary content resides in the blob store under StorageKey.
type Media struct {
	ID         string    `bson:"_id" json:"id"`
	PlanID     string    `bson:"planId" json:"planId"`
	Type       MediaType `bson:"type" json:"type"`
	Name       string    `bson:"name" json:"name"`
	MimeType   string    `bson:"mimeType" json:"mimeType"`
	Size       int64     `bson:"size" json:"size"`
	StorageKey string    `bson:"storageKey" json:"-"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`

	// DisplayURL is resolved at load time and never persisted.
	DisplayURL string `bson:"-" json:"displayUrl,omitempty"`
}

// MediaTypeFromMIME maps a detected MIME type onto a media type.
func MediaTypeFromMIME(mime string) (MediaType, bool) {
	mime = strings.ToLower(mime)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaPhoto, true
	case strings.HasPrefix(mime, "video/"):
		return MediaVideo, true
	}
	return "", false
}
