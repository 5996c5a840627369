package metadata

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"gymmanager/workout-app/internal/config"
	"gymmanager/workout-app/internal/metrics"
)

// Fetcher resolves metadata for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Metadata, error)
}

// Client fetches pages over HTTP and scrapes their head tags.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient builds a Client from the metadata config.
func NewClient(cfg config.MetadataConfig, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	redirects := cfg.MaxRedirects
	if redirects <= 0 {
		redirects = 5
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(redirects)).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{
		http: httpClient,
		log:  log.With().Str("component", "metadata").Logger(),
	}
}

// Fetch normalizes rawURL, downloads the page and classifies it.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	md, err := c.fetch(ctx, rawURL)
	if err != nil {
		metrics.RecordMetadataFetch("none", err)
		return nil, err
	}
	metrics.RecordMetadataFetch(string(md.Type), nil)
	return md, nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) (*Metadata, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().SetContext(ctx).Get(target)
	if err != nil {
		c.log.Warn().Err(err).Str("url", target).Msg("metadata fetch failed")
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode())
	}

	finalURL := target
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	page := Page{URL: finalURL}
	if isHTML(resp.Header().Get("Content-Type")) {
		page, err = ParsePage(resp.Body(), finalURL)
		if err != nil {
			return nil, err
		}
	}

	md := Classify(target, page)
	c.log.Debug().
		Str("url", target).
		Str("type", string(md.Type)).
		Bool("youtube", md.IsYouTube).
		Msg("metadata fetched")
	return &md, nil
}

func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.Contains(ct, "html") || strings.Contains(ct, "xml")
}

// ParsePage scrapes title, description and preview image from an HTML document.
// Relative image URLs are resolved against pageURL.
func ParsePage(body []byte, pageURL string) (Page, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := Page{URL: pageURL}
	meta := map[string]string{}

	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if page.Title == "" && n.FirstChild != nil {
					page.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				key, content := metaPair(n)
				if key != "" && content != "" {
					if _, ok := meta[key]; !ok {
						meta[key] = content
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			f(child)
		}
	}
	f(doc)

	if page.Title == "" {
		page.Title = meta["og:title"]
	}
	page.Description = firstNonEmpty(meta["description"], meta["og:description"], meta["twitter:description"])
	page.Image = resolve(pageURL, firstNonEmpty(meta["og:image"], meta["twitter:image"]))
	if canonical := meta["og:url"]; canonical != "" {
		page.URL = resolve(pageURL, canonical)
	}
	return page, nil
}

// metaPair returns the lower-cased name/property of a meta tag and its content.
func metaPair(n *html.Node) (string, string) {
	var key, content string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name", "property":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(attr.Val))
			}
		case "content":
			content = strings.TrimSpace(attr.Val)
		}
	}
	return key, content
}

func resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
