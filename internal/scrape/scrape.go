// Package scrape fetches a single result page and turns it into PageContent.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/webdigest/internal/extract"
)

// PageContent is the structured content of one successfully scraped page.
// The Scraper fills everything except the search provenance, the summary
// and FallbackChunks, which the aggregator adds.
type PageContent struct {
	URL             string             `json:"url"`
	Title           string             `json:"title"`
	MetaDescription string             `json:"meta_description"`
	MainText        string             `json:"main_text"`
	Images          []extract.ImageRef `json:"images"`
	Timestamp       time.Time          `json:"timestamp"`

	SearchTitle string `json:"search_title"`
	SearchLink  string `json:"search_link"`
	Summary     string `json:"summary"`
	// FallbackChunks counts chunks whose summary is the chunk text itself.
	FallbackChunks int `json:"fallback_chunks,omitempty"`
}

// Fetcher retrieves a page body and its content type. *fetch.Client
// satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Gate vetoes a URL before it is fetched. *robots.Checker satisfies it.
type Gate interface {
	Check(ctx context.Context, url string) error
}

// Scraper combines a Fetcher with HTML extraction.
type Scraper struct {
	Fetcher       Fetcher
	ExtractImages bool
	// Robots, when set, is consulted before every fetch.
	Robots Gate
	// Now defaults to time.Now and is used for PageContent.Timestamp.
	Now func() time.Time
}

// Scrape fetches rawURL and extracts its content. Any failure returns a nil
// page and the error; callers treat that as "skip this link".
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*PageContent, error) {
	if s.Fetcher == nil {
		return nil, fmt.Errorf("scrape: no fetcher configured")
	}
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("scrape: parse url: %w", err)
	}
	if s.Robots != nil {
		if err := s.Robots.Check(ctx, rawURL); err != nil {
			return nil, err
		}
	}
	start := time.Now()
	body, _, err := s.Fetcher.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	doc := extract.FromHTML(body, base, extract.Options{Images: s.ExtractImages})
	images := doc.Images
	if images == nil {
		images = []extract.ImageRef{}
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	log.Debug().Str("url", rawURL).Int("bytes", len(body)).Int("images", len(images)).Dur("took", time.Since(start)).Msg("page scraped")
	return &PageContent{
		URL:             rawURL,
		Title:           doc.Title,
		MetaDescription: doc.Description,
		MainText:        doc.MainText,
		Images:          images,
		Timestamp:       now().UTC(),
	}, nil
}
