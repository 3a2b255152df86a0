// Package extractor pulls links and images out of fetched post pages.
package extractor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// ErrContainerNotFound is returned when the page has no post content container.
var ErrContainerNotFound = errors.New("content container not found")

// Selectors for the XenForo post markup the scraper targets.
// bbWrapper is the post body container; bbImage marks inline content
// images, which carry data-src when the forum lazy-loads them.
const (
	containerSelector = "div.bbWrapper"
	imageSelector     = "img.bbImage"
	linkSelector      = "a[href]"
)

// PostContent holds the ordered links and image sources extracted from a
// post body. Both slices are non-nil on success, empty when the container
// holds no matching elements.
type PostContent struct {
	Links  []string `json:"links"`
	Images []string `json:"images"`
}

// PostExtractor extracts post content using goquery.
type PostExtractor struct{}

// NewPostExtractor creates a new post extractor.
func NewPostExtractor() *PostExtractor {
	return &PostExtractor{}
}

// Extract parses the HTML body and collects links and images from the
// post content container, in document order. Returns ErrContainerNotFound
// when the container is absent.
func (e *PostExtractor) Extract(body []byte) (*PostContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	container := doc.Find(containerSelector).First()
	if container.Length() == 0 {
		return nil, ErrContainerNotFound
	}

	content := &PostContent{
		Links:  []string{},
		Images: []string{},
	}

	container.Find(linkSelector).Each(func(_ int, sel *goquery.Selection) {
		if href, exists := sel.Attr("href"); exists {
			content.Links = append(content.Links, href)
		}
	})

	container.Find(imageSelector).Each(func(_ int, sel *goquery.Selection) {
		if src := imageSource(sel); src != "" {
			content.Images = append(content.Images, src)
		}
	})

	return content, nil
}

// imageSource returns the image URL, preferring the lazy-load data-src
// attribute over src. Images with neither are skipped.
func imageSource(sel *goquery.Selection) string {
	if dataSrc, exists := sel.Attr("data-src"); exists && dataSrc != "" {
		return dataSrc
	}
	if src, exists := sel.Attr("src"); exists && src != "" {
		return src
	}
	return ""
}
