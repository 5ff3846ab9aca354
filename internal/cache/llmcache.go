package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// LLMCache memoizes model answers (keyword lists, chunk summaries) as one
// JSON file per model and prompt. A hit refreshes the file's mtime, so
// PurgeLLMCacheByAge evicts by last use. A nil *LLMCache never hits and
// silently drops saves.
type LLMCache struct {
	Dir string
	// StrictPerms enforces 0700 directories and 0600 files.
	StrictPerms bool
}

// KeyFrom digests model and prompt into a cache key.
func KeyFrom(model string, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n\n" + prompt))
	return hex.EncodeToString(h[:])
}

func (c *LLMCache) path(key string) (string, error) {
	if c == nil || c.Dir == "" {
		return "", errors.New("cache dir not configured")
	}
	if err := mkdirPerm(c.Dir, c.StrictPerms); err != nil {
		return "", err
	}
	return filepath.Join(c.Dir, key+".json"), nil
}

// GetJSON decodes the entry for key into v. It reports false on a miss or
// an undecodable entry.
func (c *LLMCache) GetJSON(_ context.Context, key string, v any) bool {
	if c == nil {
		return false
	}
	p, err := c.path(key)
	if err != nil {
		return false
	}
	b, err := os.ReadFile(p)
	if err != nil || json.Unmarshal(b, v) != nil {
		return false
	}
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return true
}

// SaveJSON stores v under key.
func (c *LLMCache) SaveJSON(_ context.Context, key string, v any) error {
	if c == nil {
		return nil
	}
	p, err := c.path(key)
	if err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if c.StrictPerms {
		mode = 0o600
	}
	return writeAtomic(p, b, mode)
}

// writeAtomic writes data to a sibling temp file and renames it over path.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
