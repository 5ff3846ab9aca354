package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

// SearxNG queries a self-hosted SearxNG instance through its JSON API. It is
// the provider to use when DuckDuckGo throttles the HTML endpoint.
type SearxNG struct {
	BaseURL    string
	APIKey     string // sent as apikey when set
	HTTPClient *http.Client
	UserAgent  string
	Limiter    *rate.Limiter
}

func (s *SearxNG) Name() string { return "searxng" }

func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	out := []Result{}
	endpoint, err := s.endpoint(query, limit)
	if err != nil {
		return out, err
	}
	h := http.Header{}
	h.Set("Accept", "application/json")
	if s.UserAgent != "" {
		h.Set("User-Agent", s.UserAgent)
	}
	resp, err := get(ctx, s.Name(), s.HTTPClient, s.Limiter, endpoint, h)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	return s.decode(resp.Body, limit, out)
}

// endpoint builds <base>/search with the general-category JSON parameters.
func (s *SearxNG) endpoint(query string, limit int) (string, error) {
	if strings.TrimSpace(s.BaseURL) == "" {
		return "", errors.New("searxng base url is empty")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("searxng base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("categories", "general")
	q.Set("language", "auto")
	q.Set("safesearch", "1")
	if limit > 0 {
		q.Set("count", strconv.Itoa(limit))
	}
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type searxPayload struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (s *SearxNG) decode(r io.Reader, limit int, out []Result) ([]Result, error) {
	var p searxPayload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return out, fmt.Errorf("decode searxng json: %w", err)
	}
	for _, hit := range p.Results {
		title := strings.TrimSpace(hit.Title)
		link, ok := NormalizeLink(hit.URL, nil)
		if !ok || title == "" {
			continue
		}
		out = append(out, Result{Title: title, URL: link, Snippet: strings.TrimSpace(hit.Content), Source: s.Name()})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
