// Package search turns a keyword query into an ordered list of result links.
package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Result is a single search hit. Slice order is rank.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Source  string `json:"source,omitempty"` // provider name for observability
}

// Provider is a minimal interface for search providers.
//
// Providers degrade to an empty list rather than failing the caller: a
// non-2xx response or a transport error yields an empty, non-nil slice plus
// an error describing why, so "nothing matched" (empty list, nil error) stays
// distinguishable from "blocked" (empty list, *StatusError).
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// StatusError reports a non-2xx response from a search provider.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status: %d", e.Provider, e.Code)
}

// Blocked reports whether the status looks like throttling or bot blocking
// rather than a server fault.
func (e *StatusError) Blocked() bool {
	switch e.Code {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

// get waits for the limiter, sends a GET to u and returns the response of a
// 2xx answer. Other statuses close the body and yield a *StatusError.
func get(ctx context.Context, provider string, hc *http.Client, limiter *rate.Limiter, u string, header http.Header) (*http.Response, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{Provider: provider, Code: resp.StatusCode}
	}
	return resp, nil
}
