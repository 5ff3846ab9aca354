package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultDuckDuckGoURL is the HTML (no JavaScript) result listing endpoint.
const DefaultDuckDuckGoURL = "https://duckduckgo.com/html/"

// BrowserUserAgent is the desktop browser profile sent to search and page
// hosts that reject non-browser clients.
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0"

// DuckDuckGo scrapes the DuckDuckGo HTML listing for organic results
// (anchors with class result__a). No retry or backoff is performed.
type DuckDuckGo struct {
	BaseURL        string // defaults to DefaultDuckDuckGoURL
	HTTPClient     *http.Client
	UserAgent      string // defaults to BrowserUserAgent
	AcceptLanguage string // defaults to "en-US,en;q=0.5"
	// Limiter, when set, spaces out requests to the provider.
	Limiter *rate.Limiter
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	out := []Result{}
	base := d.BaseURL
	if base == "" {
		base = DefaultDuckDuckGoURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return out, fmt.Errorf("duckduckgo base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	resp, err := get(ctx, d.Name(), d.HTTPClient, d.Limiter, u.String(), d.headers(u))
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return out, fmt.Errorf("parse duckduckgo html: %w", err)
	}
	doc.Find("a.result__a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		link, ok := NormalizeLink(href, u)
		if !ok {
			log.Debug().Str("href", href).Msg("skipping non-http search result")
			return true
		}
		out = append(out, Result{
			Title:   strings.TrimSpace(s.Text()),
			URL:     link,
			Snippet: snippetFor(s),
			Source:  d.Name(),
		})
		return limit <= 0 || len(out) < limit
	})
	return out, nil
}

func (d *DuckDuckGo) headers(u *url.URL) http.Header {
	ua := d.UserAgent
	if ua == "" {
		ua = BrowserUserAgent
	}
	lang := d.AcceptLanguage
	if lang == "" {
		lang = "en-US,en;q=0.5"
	}
	h := http.Header{}
	h.Set("User-Agent", ua)
	h.Set("Referer", u.Scheme+"://"+u.Host+"/")
	h.Set("Accept-Language", lang)
	return h
}

// snippetFor returns the result__snippet text of the result block containing s.
func snippetFor(s *goquery.Selection) string {
	block := s.Closest(".result")
	if block.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(block.Find(".result__snippet").First().Text())
}
