package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLLMCache_RoundTrip(t *testing.T) {
	c := &LLMCache{Dir: t.TempDir()}
	ctx := context.Background()
	key := KeyFrom("m", "p")
	if err := c.SaveJSON(ctx, key, map[string]string{"summary": "ok"}); err != nil {
		t.Fatalf("save json: %v", err)
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if !c.GetJSON(ctx, key, &out) || out.Summary != "ok" {
		t.Fatalf("unexpected decode: %+v", out)
	}
	if c.GetJSON(ctx, KeyFrom("m", "other"), &out) {
		t.Fatalf("expected miss for unknown key")
	}
	if KeyFrom("m", "p") == KeyFrom("m2", "p") {
		t.Fatalf("model must be part of the key")
	}
}

func TestLLMCache_NilAndCorrupt(t *testing.T) {
	ctx := context.Background()
	var nilCache *LLMCache
	var out map[string]string
	if nilCache.GetJSON(ctx, "k", &out) || nilCache.SaveJSON(ctx, "k", out) != nil {
		t.Fatalf("nil cache must miss and ignore saves")
	}
	dir := t.TempDir()
	c := &LLMCache{Dir: dir}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if c.GetJSON(ctx, "bad", &out) {
		t.Fatalf("corrupt entry must miss")
	}
}

func TestLLMCache_StrictPerms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "llm")
	c := &LLMCache{Dir: dir, StrictPerms: true}
	key := KeyFrom("model", "prompt")
	if err := c.SaveJSON(context.Background(), key, struct{}{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if got := info.Mode() & 0o777; got != 0o700 {
		t.Fatalf("dir mode = %o, want 0700", got)
	}
	finfo, err := os.Stat(filepath.Join(dir, key+".json"))
	if err != nil {
		t.Fatalf("stat file: %v", err)
	}
	if got := finfo.Mode() & 0o777; got != 0o600 {
		t.Fatalf("file mode = %o, want 0600", got)
	}
}

func TestHTTPCache_StoreLoad(t *testing.T) {
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	url := "https://example.com/x"
	if err := c.Store(ctx, url, Response{ContentType: "text/html", ETag: `"e1"`, Body: []byte("hello")}); err != nil {
		t.Fatalf("store: %v", err)
	}
	meta, body, err := c.Load(ctx, url)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.ETag != `"e1"` || meta.URL != url || meta.ContentType != "text/html" || string(body) != "hello" {
		t.Fatalf("unexpected entry: %+v %q", meta, body)
	}
	if _, _, err := c.Load(ctx, "https://example.com/missing"); err == nil {
		t.Fatalf("expected miss")
	}
}

func TestHTTPCache_SetValidators(t *testing.T) {
	c := &HTTPCache{Dir: t.TempDir()}
	ctx := context.Background()
	url := "https://example.com/menu"
	h := http.Header{}
	if c.SetValidators(ctx, url, h) || len(h) != 0 {
		t.Fatalf("no entry must set nothing: %v", h)
	}
	if err := c.Store(ctx, url, Response{ETag: `W/"v2"`, LastModified: "Mon, 01 Jan 2024 00:00:00 GMT", Body: []byte("x")}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if !c.SetValidators(ctx, url, h) {
		t.Fatalf("expected validators")
	}
	if h.Get("If-None-Match") != `W/"v2"` || h.Get("If-Modified-Since") != "Mon, 01 Jan 2024 00:00:00 GMT" {
		t.Fatalf("headers = %v", h)
	}
	var nilCache *HTTPCache
	if nilCache.SetValidators(ctx, url, http.Header{}) {
		t.Fatalf("nil cache must report false")
	}
}

func TestHTTPCache_StrictPerms(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "http")
	c := &HTTPCache{Dir: dir, StrictPerms: true}
	url := "https://example.com/x"
	if err := c.Store(context.Background(), url, Response{ContentType: "text/html", ETag: "etag", Body: []byte("hello")}); err != nil {
		t.Fatalf("store: %v", err)
	}
	metaPath, bodyPath := c.files(url)
	for _, f := range []string{bodyPath, metaPath} {
		finfo, err := os.Stat(f)
		if err != nil {
			t.Fatalf("stat %s: %v", f, err)
		}
		if got := finfo.Mode() & 0o777; got != 0o600 {
			t.Fatalf("%s mode = %o, want 0600", f, got)
		}
	}
}

func TestPurgeHTTPCacheByAge(t *testing.T) {
	dir := t.TempDir()
	c := &HTTPCache{Dir: dir}
	ctx := context.Background()
	fresh, stale := "https://a.com/fresh", "https://a.com/stale"
	for _, u := range []string{fresh, stale} {
		if err := c.Store(ctx, u, Response{ContentType: "text/html", Body: []byte("x")}); err != nil {
			t.Fatalf("store: %v", err)
		}
	}
	// Backdate the stale entry.
	meta := HTTPEntry{URL: stale, SavedAt: time.Now().UTC().Add(-48 * time.Hour)}
	b, _ := json.Marshal(meta)
	staleMeta, _ := c.files(stale)
	if err := os.WriteFile(staleMeta, b, 0o644); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	removed, err := PurgeHTTPCacheByAge(dir, 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed=%d, want 1", removed)
	}
	if _, _, err := c.Load(ctx, stale); err == nil {
		t.Fatalf("stale entry should be gone")
	}
	if _, _, err := c.Load(ctx, fresh); err != nil {
		t.Fatalf("fresh entry should remain: %v", err)
	}
}

func TestPurgeLLMCacheByAge(t *testing.T) {
	dir := t.TempDir()
	c := &LLMCache{Dir: dir}
	old := KeyFrom("m", "old")
	if err := c.SaveJSON(context.Background(), old, 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	past := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, old+".json"), past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	removed, err := PurgeLLMCacheByAge(dir, time.Hour)
	if err != nil || removed != 1 {
		t.Fatalf("removed=%d err=%v", removed, err)
	}
}

func TestPurge_MissingDirIsNotAnError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	if _, err := PurgeHTTPCacheByAge(missing, time.Hour); err != nil {
		t.Fatalf("http purge: %v", err)
	}
	if _, err := PurgeLLMCacheByAge(missing, time.Hour); err != nil {
		t.Fatalf("llm purge: %v", err)
	}
}
