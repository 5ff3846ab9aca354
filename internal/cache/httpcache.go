package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// HTTPEntry is the metadata kept next to a cached response body.
type HTTPEntry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	SavedAt      time.Time `json:"saved_at"`
}

// Response is what Store persists for a URL.
type Response struct {
	ContentType  string
	ETag         string
	LastModified string
	Body         []byte
}

// HTTPCache keeps scraped pages and robots.txt files on disk so later runs
// can revalidate them instead of downloading again. Each URL maps to
// <sha256>.meta.json and <sha256>.body; eviction is PurgeHTTPCacheByAge.
// A nil *HTTPCache is a valid, always-missing cache.
type HTTPCache struct {
	Dir string
	// StrictPerms enforces 0700 directories and 0600 files.
	StrictPerms bool
}

func (c *HTTPCache) files(url string) (meta string, body string) {
	sum := sha256.Sum256([]byte(url))
	base := filepath.Join(c.Dir, hex.EncodeToString(sum[:]))
	return base + ".meta.json", base + ".body"
}

func (c *HTTPCache) ready() error {
	if c == nil || c.Dir == "" {
		return errors.New("cache dir not configured")
	}
	return mkdirPerm(c.Dir, c.StrictPerms)
}

// LoadMeta returns the entry metadata for url.
func (c *HTTPCache) LoadMeta(_ context.Context, url string) (*HTTPEntry, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	metaPath, _ := c.files(url)
	b, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}
	var e HTTPEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode cache meta: %w", err)
	}
	return &e, nil
}

// Load returns the metadata and body for url. Both must be present.
func (c *HTTPCache) Load(ctx context.Context, url string) (*HTTPEntry, []byte, error) {
	meta, err := c.LoadMeta(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	_, bodyPath := c.files(url)
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return nil, nil, err
	}
	return meta, body, nil
}

// SetValidators adds If-None-Match and If-Modified-Since to h from the
// entry cached for url. It reports whether any validator was set.
func (c *HTTPCache) SetValidators(ctx context.Context, url string, h http.Header) bool {
	if c == nil {
		return false
	}
	meta, err := c.LoadMeta(ctx, url)
	if err != nil {
		return false
	}
	if meta.ETag != "" {
		h.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		h.Set("If-Modified-Since", meta.LastModified)
	}
	return meta.ETag != "" || meta.LastModified != ""
}

// Store saves resp for url. The body lands before the metadata, and the
// metadata is renamed into place, so a reader never sees metadata without
// its body.
func (c *HTTPCache) Store(_ context.Context, url string, resp Response) error {
	if err := c.ready(); err != nil {
		return err
	}
	metaPath, bodyPath := c.files(url)
	if err := os.WriteFile(bodyPath, resp.Body, c.mode()); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	data, err := json.Marshal(HTTPEntry{
		URL:          url,
		ContentType:  resp.ContentType,
		ETag:         resp.ETag,
		LastModified: resp.LastModified,
		SavedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := writeAtomic(metaPath, data, c.mode()); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

func (c *HTTPCache) mode() os.FileMode {
	if c.StrictPerms {
		return 0o600
	}
	return 0o644
}

func mkdirPerm(dir string, strict bool) error {
	perm := os.FileMode(0o755)
	if strict {
		perm = 0o700
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode().Perm() != 0o700 {
			return os.Chmod(dir, 0o700)
		}
	}
	return nil
}
