package domain

import "time"

// LinkType classifies an external reference.
type LinkType string

const (
	LinkVideo   LinkType = "video"
	LinkImage   LinkType = "image"
	LinkWebpage LinkType = "webpage"
)

// URLLink is a metadata snapshot of an external URL, taken once when it was added.
type URLLink struct {
	ID           string    `bson:"id" json:"id"`
	URL          string    `bson:"url" json:"url"`
	Title        string    `bson:"title,omitempty" json:"title,omitempty"`
	Description  string    `bson:"description,omitempty" json:"description,omitempty"`
	ThumbnailURL string    `bson:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
	Type         LinkType  `bson:"type" json:"type"`
	IsYouTube    bool      `bson:"isYouTube,omitempty" json:"isYouTube,omitempty"`
	YouTubeID    string    `bson:"youTubeId,omitempty" json:"youTubeId,omitempty"`
	EmbedURL     string    `bson:"embedUrl,omitempty" json:"embedUrl,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
