package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/hyperifyio/webdigest/internal/cache"
)

// ErrDisallowed is returned by Check when robots.txt forbids the page.
var ErrDisallowed = errors.New("disallowed by robots.txt")

const maxRobotsBytes = 512 << 10

// Checker fetches robots.txt once per site and answers per-page checks.
// A missing, unreachable or malformed robots.txt allows everything.
// Concurrent checks against the same site share one fetch.
type Checker struct {
	HTTPClient *http.Client
	// Cache, when set, revalidates robots.txt with ETag/Last-Modified.
	Cache     *cache.HTTPCache
	UserAgent string
	// TTL bounds how long parsed rules stay in memory; default 30m.
	TTL time.Duration

	mu     sync.Mutex
	mem    map[string]entry
	flight singleflight.Group
	now    func() time.Time
}

type entry struct {
	rules  Rules
	expiry time.Time
}

// Check returns ErrDisallowed when pageURL must not be fetched.
func (c *Checker) Check(ctx context.Context, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}
	rules := c.rulesFor(ctx, u.Scheme+"://"+u.Host+"/robots.txt")
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !rules.IsAllowed(c.UserAgent, path) {
		return fmt.Errorf("%w: %s", ErrDisallowed, pageURL)
	}
	return nil
}

func (c *Checker) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *Checker) rulesFor(ctx context.Context, robotsURL string) Rules {
	c.mu.Lock()
	if e, ok := c.mem[robotsURL]; ok && c.clock().Before(e.expiry) {
		c.mu.Unlock()
		return e.rules
	}
	c.mu.Unlock()

	v, _, _ := c.flight.Do(robotsURL, func() (any, error) {
		rules, err := c.fetch(ctx, robotsURL)
		if err != nil {
			log.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt unavailable; allowing")
			if ctx.Err() != nil {
				return Rules{}, nil
			}
		}
		ttl := c.TTL
		if ttl <= 0 {
			ttl = 30 * time.Minute
		}
		c.mu.Lock()
		if c.mem == nil {
			c.mem = make(map[string]entry)
		}
		c.mem[robotsURL] = entry{rules: rules, expiry: c.clock().Add(ttl)}
		c.mu.Unlock()
		return rules, nil
	})
	return v.(Rules)
}

func (c *Checker) fetch(ctx context.Context, robotsURL string) (Rules, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	c.Cache.SetValidators(ctx, robotsURL, req.Header)
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Rules{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && c.Cache != nil {
		_, body, err := c.Cache.Load(ctx, robotsURL)
		if err != nil {
			return Rules{}, fmt.Errorf("load cached robots: %w", err)
		}
		return Parse(string(body)), nil
	}
	if resp.StatusCode != http.StatusOK {
		return Rules{}, fmt.Errorf("robots status: %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return Rules{}, fmt.Errorf("read robots: %w", err)
	}
	if c.Cache != nil {
		err := c.Cache.Store(ctx, robotsURL, cache.Response{
			ContentType:  resp.Header.Get("Content-Type"),
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         data,
		})
		if err != nil {
			log.Debug().Err(err).Msg("robots cache save failed")
		}
	}
	return Parse(string(data)), nil
}
