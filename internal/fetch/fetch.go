// Package fetch retrieves result pages over HTTP with a browser-like header
// profile, a per-request timeout and an optional on-disk cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/hyperifyio/webdigest/internal/cache"
)

// DefaultTimeout bounds a single page request.
const DefaultTimeout = 10 * time.Second

// DefaultMaxBodyBytes caps how much of a page body is read.
const DefaultMaxBodyBytes = 8 << 20

var (
	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
	// ErrUnsupportedContentType is returned when the response is not HTML.
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// StatusError reports a response status other than 200 OK.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// Client fetches result pages. It applies a browser header profile and a
// per-request timeout, retries transient failures and, with a Cache,
// revalidates previously seen pages.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// AcceptLanguage defaults to "en-US,en;q=0.5".
	AcceptLanguage string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request. Zero means DefaultTimeout.
	PerRequestTimeout time.Duration
	// MaxBodyBytes caps the body read. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Cache is optional. BypassCache skips revalidation but still stores
	// fresh responses.
	Cache       *cache.HTTPCache
	BypassCache bool

	// RedirectMaxHops caps followed redirects. Zero means 5.
	RedirectMaxHops int
	// MaxConcurrent bounds in-flight requests. Zero means unlimited.
	MaxConcurrent int

	gate     *semaphore.Weighted
	gateOnce sync.Once
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.timeout(), CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) timeout() time.Duration {
	if c.PerRequestTimeout > 0 {
		return c.PerRequestTimeout
	}
	return DefaultTimeout
}

// Get issues a GET and returns the body and content type of a 200 response.
// With a cache configured, a 304 answer to a conditional request is served
// from the cached body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) || u.Host == "" {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}
	attempts := max(1, c.MaxAttempts)
	var lastErr error
	for i := range attempts {
		res, err := c.tryOnce(ctx, rawURL)
		if err == nil {
			return c.settle(ctx, rawURL, res)
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	return nil, "", lastErr
}

// settle turns a successful exchange into the page body, reading through
// the cache on 304 and refreshing it on 200.
func (c *Client) settle(ctx context.Context, rawURL string, res response) ([]byte, string, error) {
	if res.status == http.StatusNotModified {
		meta, body, err := c.Cache.Load(ctx, rawURL)
		if err != nil {
			return nil, "", &StatusError{URL: rawURL, Code: res.status}
		}
		log.Debug().Str("url", rawURL).Msg("serving page from cache")
		ct := meta.ContentType
		if ct == "" {
			ct = res.contentType
		}
		return body, ct, nil
	}
	if c.Cache != nil {
		err := c.Cache.Store(ctx, rawURL, cache.Response{
			ContentType:  res.contentType,
			ETag:         res.etag,
			LastModified: res.lastModified,
			Body:         res.body,
		})
		if err != nil {
			log.Debug().Err(err).Str("url", rawURL).Msg("http cache save failed")
		}
	}
	return res.body, res.contentType, nil
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

func (c *Client) tryOnce(ctx context.Context, rawURL string) (response, error) {
	if err := c.acquire(ctx); err != nil {
		return response{}, err
	}
	defer c.release()

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	c.setHeaders(req, rawURL)
	conditional := false
	if !c.BypassCache {
		conditional = c.Cache.SetValidators(ctx, rawURL, req.Header)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	res := response{
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}
	if resp.StatusCode == http.StatusNotModified && conditional {
		return res, nil
	}
	if resp.StatusCode != http.StatusOK {
		return response{}, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	if !isAllowedHTMLContentType(res.contentType) {
		return response{}, fmt.Errorf("%w: %s", ErrUnsupportedContentType, res.contentType)
	}
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return response{}, fmt.Errorf("read body: %w", err)
	}
	res.body = b
	return res, nil
}

// setHeaders applies the browser profile. The Referer is the page itself.
func (c *Client) setHeaders(req *http.Request, rawURL string) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	lang := c.AcceptLanguage
	if lang == "" {
		lang = "en-US,en;q=0.5"
	}
	req.Header.Set("Accept-Language", lang)
	req.Header.Set("Referer", rawURL)
}

func isTransient(err error) bool {
	// Treat HTTP 5xx and context deadline as transient.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 500 && se.Code <= 599
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		// Only allow http/https during redirects
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return fmt.Errorf("redirect: %w", ErrUnsupportedScheme)
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// isAllowedHTMLContentType accepts HTML variants and a missing header, which
// some small sites omit.
func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire(ctx context.Context) error {
	if c.MaxConcurrent <= 0 {
		return nil
	}
	c.gateOnce.Do(func() {
		c.gate = semaphore.NewWeighted(int64(c.MaxConcurrent))
	})
	return c.gate.Acquire(ctx, 1)
}

func (c *Client) release() {
	if c.gate != nil {
		c.gate.Release(1)
	}
}
