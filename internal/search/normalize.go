package search

import (
	"net/url"
	"strings"
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid"}

// NormalizeLink resolves raw against base, unwraps DuckDuckGo redirect links
// (/l/?uddg=<target>), drops the fragment, lowercases the host and strips
// common tracking parameters. It reports false when the result is not an
// absolute http(s) URL.
func NormalizeLink(raw string, base *url.URL) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if target, ok := unwrapRedirect(u); ok {
		u = target
	}
	if !isHTTP(u) {
		return "", false
	}
	normalizeURL(u)
	return u.String(), true
}

func unwrapRedirect(u *url.URL) (*url.URL, bool) {
	host := strings.ToLower(u.Hostname())
	if host != "duckduckgo.com" && !strings.HasSuffix(host, ".duckduckgo.com") {
		return nil, false
	}
	if strings.TrimRight(u.Path, "/") != "/l" {
		return nil, false
	}
	target := u.Query().Get("uddg")
	if target == "" {
		return nil, false
	}
	t, err := url.Parse(target)
	if err != nil {
		return nil, false
	}
	return t, true
}

func isHTTP(u *url.URL) bool {
	if u == nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.RawQuery == "" {
		return
	}
	q := u.Query()
	removed := false
	for _, p := range trackingParams {
		if q.Has(p) {
			q.Del(p)
			removed = true
		}
	}
	// Re-encoding sorts the parameters, so only do it when something changed.
	if removed {
		u.RawQuery = q.Encode()
	}
}
