// Package metadata fetches a web page once and classifies it as a video,
// image or plain webpage link.
package metadata

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"gymmanager/workout-app/internal/domain"
)

var ErrInvalidURL = errors.New("invalid URL format")

var (
	youTubePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`),
		regexp.MustCompile(`youtube\.com/shorts/([^&\n?#]+)`),
	}
	imageExtRegex = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg|bmp|ico)$`)
)

// Metadata is the snapshot returned for a URL.
type Metadata struct {
	URL          string          `json:"url"`
	Title        string          `json:"title,omitempty"`
	Description  string          `json:"description,omitempty"`
	Image        string          `json:"image,omitempty"`
	Type         domain.LinkType `json:"type"`
	IsYouTube    bool            `json:"isYouTube"`
	YouTubeID    string          `json:"youTubeId,omitempty"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
	EmbedURL     string          `json:"embedUrl,omitempty"`
}

// Page holds what was scraped from the document.
type Page struct {
	URL         string
	Title       string
	Description string
	Image       string
}

// NormalizeURL trims raw, adds https:// when no scheme is given and
// requires an http(s) URL with a host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u.String(), nil
}

// ExtractYouTubeID returns the video id for watch, youtu.be, embed and shorts URLs.
func ExtractYouTubeID(rawURL string) (string, bool) {
	for _, p := range youTubePatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// IsImageURL reports whether the path (query ignored) ends in an image extension.
func IsImageURL(rawURL string) bool {
	path, _, _ := strings.Cut(rawURL, "?")
	return imageExtRegex.MatchString(path)
}

// Classify derives type, embed and thumbnail URLs for requestURL from the scraped page.
func Classify(requestURL string, page Page) Metadata {
	md := Metadata{
		URL:         page.URL,
		Title:       page.Title,
		Description: page.Description,
		Image:       page.Image,
		Type:        domain.LinkWebpage,
	}
	if md.URL == "" {
		md.URL = requestURL
	}

	if id, ok := ExtractYouTubeID(requestURL); ok {
		md.Type = domain.LinkVideo
		md.IsYouTube = true
		md.YouTubeID = id
		md.EmbedURL = "https://www.youtube.com/embed/" + id
		md.ThumbnailURL = "https://img.youtube.com/vi/" + id + "/maxresdefault.jpg"
		return md
	}

	if IsImageURL(requestURL) {
		md.Type = domain.LinkImage
		md.ThumbnailURL = requestURL
		return md
	}

	if strings.Contains(page.Image, "youtube") ||
		strings.Contains(strings.ToLower(page.Title), "video") ||
		strings.Contains(requestURL, "video") {
		md.Type = domain.LinkVideo
	}
	md.ThumbnailURL = page.Image
	return md
}

// Fallback is the snapshot used when a page cannot be fetched.
func Fallback(rawURL string) Metadata {
	return Metadata{
		URL:         rawURL,
		Type:        domain.LinkWebpage,
		Title:       "External Link",
		Description: "Unable to fetch metadata",
	}
}

// ToURLLink converts the snapshot into a link owned by a plan.
func (m Metadata) ToURLLink() domain.URLLink {
	return domain.URLLink{
		URL:          m.URL,
		Title:        m.Title,
		Description:  m.Description,
		ThumbnailURL: m.ThumbnailURL,
		Type:         m.Type,
		IsYouTube:    m.IsYouTube,
		YouTubeID:    m.YouTubeID,
		EmbedURL:     m.EmbedURL,
	}
}
