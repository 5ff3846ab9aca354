package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/webdigest/internal/cache"
)

func htmlServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func newClient() *Client {
	return &Client{UserAgent: "webdigest-test", MaxAttempts: 1, PerRequestTimeout: 2 * time.Second}
}

func TestGet_Success(t *testing.T) {
	srv := htmlServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>Trattoria</p>"))
	})
	body, ct, err := newClient().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ct != "text/html; charset=utf-8" || string(body) != "<p>Trattoria</p>" {
		t.Fatalf("ct=%q body=%q", ct, body)
	}
}

func TestGet_RetriesOnlyTransientFailures(t *testing.T) {
	cases := []struct {
		name      string
		first     int
		wantErr   bool
		wantCalls int32
	}{
		{"502 then ok", http.StatusBadGateway, false, 2},
		{"404 is final", http.StatusNotFound, true, 1},
	}
	for _, tc := range cases {
		var calls int32
		srv := htmlServer(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(tc.first)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("ok"))
		})
		c := newClient()
		c.MaxAttempts = 3
		_, _, err := c.Get(context.Background(), srv.URL)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err = %v", tc.name, err)
		}
		if got := atomic.LoadInt32(&calls); got != tc.wantCalls {
			t.Fatalf("%s: calls = %d, want %d", tc.name, got, tc.wantCalls)
		}
	}
}

func TestGet_RevalidatesFromCache(t *testing.T) {
	cases := []struct {
		name      string
		validator string
		header    string
		value     string
	}{
		{"etag", "If-None-Match", "ETag", `"abc123"`},
		{"last-modified", "If-Modified-Since", "Last-Modified", "Mon, 01 Jan 2024 00:00:00 GMT"},
	}
	for _, tc := range cases {
		var full, revalidated int32
		srv := htmlServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(tc.validator) == tc.value {
				atomic.AddInt32(&revalidated, 1)
				w.WriteHeader(http.StatusNotModified)
				return
			}
			atomic.AddInt32(&full, 1)
			w.Header().Set("Content-Type", "text/html")
			w.Header().Set(tc.header, tc.value)
			_, _ = w.Write([]byte("menu"))
		})
		c := newClient()
		c.Cache = &cache.HTTPCache{Dir: t.TempDir()}
		for i := 0; i < 2; i++ {
			body, ct, err := c.Get(context.Background(), srv.URL)
			if err != nil || string(body) != "menu" || ct != "text/html" {
				t.Fatalf("%s: get %d: body=%q ct=%q err=%v", tc.name, i, body, ct, err)
			}
		}
		if full != 1 || revalidated != 1 {
			t.Fatalf("%s: full=%d revalidated=%d", tc.name, full, revalidated)
		}
	}
}

func TestGet_BypassCacheSkipsValidators(t *testing.T) {
	var conditional int32
	srv := htmlServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			atomic.AddInt32(&conditional, 1)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("ETag", `"v"`)
		_, _ = w.Write([]byte("fresh"))
	})
	c := newClient()
	c.Cache = &cache.HTTPCache{Dir: t.TempDir()}
	c.BypassCache = true
	for i := 0; i < 2; i++ {
		if _, _, err := c.Get(context.Background(), srv.URL); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if conditional != 0 {
		t.Fatalf("bypass must not send validators")
	}
	if _, body, err := c.Cache.Load(context.Background(), srv.URL); err != nil || string(body) != "fresh" {
		t.Fatalf("bypass must still store: %q %v", body, err)
	}
}

func TestGet_RejectsNonHTTP(t *testing.T) {
	for _, u := range []string{"file:///etc/hosts", "ftp://example.com/x", "mailto:a@b.c", "//no-scheme"} {
		_, _, err := newClient().Get(context.Background(), u)
		if !errors.Is(err, ErrUnsupportedScheme) {
			t.Fatalf("%s: expected ErrUnsupportedScheme, got %v", u, err)
		}
	}
}

func TestGet_ContentTypeGating(t *testing.T) {
	srv := htmlServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	})
	if _, _, err := newClient().Get(context.Background(), srv.URL); !errors.Is(err, ErrUnsupportedContentType) {
		t.Fatalf("expected ErrUnsupportedContentType, got %v", err)
	}
}

func TestGet_RedirectLimit(t *testing.T) {
	srv := htmlServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.Redirect(w, r, "/a", http.StatusFound)
		case "/a":
			http.Redirect(w, r, "/b", http.StatusFound)
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("ok"))
		}
	})
	c := newClient()
	c.RedirectMaxHops = 1
	if _, _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected redirect limit error")
	}
	c.RedirectMaxHops = 2
	if _, _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("two hops allowed: %v", err)
	}
}

func TestGet_MaxConcurrent(t *testing.T) {
	var inFlight, peak int32
	srv := htmlServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("ok"))
	})
	c := newClient()
	c.MaxConcurrent = 2
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.Get(context.Background(), srv.URL)
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Fatalf("peak concurrency %d, want <= 2", got)
	}
}

func TestGet_ConcurrencyGateHonorsContext(t *testing.T) {
	release := make(chan struct{})
	srv := htmlServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("ok"))
	})
	c := newClient()
	c.MaxConcurrent = 1
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = c.Get(context.Background(), srv.URL)
	}()
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := c.Get(ctx, srv.URL)
	close(release)
	<-done
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("queued request should give up with its context, got %v", err)
	}
}

func TestGet_BrowserHeaderProfile(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	c := &Client{UserAgent: "Mozilla/5.0 test"}
	target := srv.URL + "/page?id=1"
	if _, _, err := c.Get(context.Background(), target); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Get("User-Agent") != "Mozilla/5.0 test" {
		t.Fatalf("user agent: %q", got.Get("User-Agent"))
	}
	if got.Get("Referer") != target {
		t.Fatalf("referer should be the page itself, got %q", got.Get("Referer"))
	}
	if got.Get("Accept-Language") != "en-US,en;q=0.5" {
		t.Fatalf("accept-language: %q", got.Get("Accept-Language"))
	}
}

func TestGet_OnlyStatusOKSucceeds(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(code)
		}))
		c := &Client{MaxAttempts: 1}
		_, _, err := c.Get(context.Background(), srv.URL)
		srv.Close()
		var se *StatusError
		if !errors.As(err, &se) || se.Code != code {
			t.Fatalf("status %d: expected *StatusError, got %v", code, err)
		}
	}
}

func TestGet_MissingContentTypeAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Setting the header to nil stops net/http from sniffing a type.
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("<p>bare</p>"))
	}))
	defer srv.Close()
	c := &Client{}
	body, ct, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ct != "" || string(body) != "<p>bare</p>" {
		t.Fatalf("unexpected ct=%q body=%q", ct, body)
	}
}

func TestGet_TimeoutIsReported(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := &Client{MaxAttempts: 1, PerRequestTimeout: 50 * time.Millisecond}
	_, _, err := c.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestGet_BodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()
	c := &Client{MaxBodyBytes: 4}
	body, _, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != "0123" {
		t.Fatalf("expected truncated body, got %q", body)
	}
}
