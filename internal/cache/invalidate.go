package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HTTPDir and LLMDir are the namespaces under a cache root.
func HTTPDir(root string) string { return filepath.Join(root, "http") }
func LLMDir(root string) string  { return filepath.Join(root, "llm") }

// ClearDir empties dir, recreating it.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge drops pages and robots files stored more than maxAge
// ago, judged by the SavedAt recorded in their metadata.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	return purge(dir, maxAge, ".meta.json", func(path string, _ fs.DirEntry) bool {
		b, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		var e HTTPEntry
		if json.Unmarshal(b, &e) != nil {
			return false
		}
		if !e.SavedAt.Before(cutoff) {
			return false
		}
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
		return true
	})
}

// PurgeLLMCacheByAge drops model answers not used within maxAge, judged by
// file mtime.
func PurgeLLMCacheByAge(dir string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	return purge(dir, maxAge, ".json", func(_ string, d fs.DirEntry) bool {
		info, err := d.Info()
		return err == nil && info.ModTime().Before(cutoff)
	})
}

// purge walks dir and removes every file with suffix that stale accepts.
// A missing dir or a non-positive maxAge removes nothing.
func purge(dir string, maxAge time.Duration, suffix string, stale func(path string, d fs.DirEntry) bool) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil
		case err != nil:
			return err
		case d.IsDir() || !strings.HasSuffix(d.Name(), suffix):
			return nil
		}
		if stale(path, d) && os.Remove(path) == nil {
			removed++
		}
		return nil
	})
	return removed, err
}
